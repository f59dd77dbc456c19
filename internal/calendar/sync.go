package calendar

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bnb-reservations/backend/internal/storage"
	"github.com/bnb-reservations/backend/internal/storage/models"
)

// ErrCalendarNotFound is returned when syncing an unknown subscription.
var ErrCalendarNotFound = errors.New("calendar not found")

// SyncService imports subscribed calendar feeds as unavailable periods.
type SyncService struct {
	db           *storage.DB
	calendarRepo *storage.CalendarRepository
	periodRepo   *storage.UnavailableRepository
	parser       *Parser
	logger       logrus.FieldLogger
	now          func() time.Time
}

// NewSyncService creates a new calendar sync service.
func NewSyncService(
	db *storage.DB,
	calendarRepo *storage.CalendarRepository,
	periodRepo *storage.UnavailableRepository,
	parser *Parser,
	logger logrus.FieldLogger,
) *SyncService {
	return &SyncService{
		db:           db,
		calendarRepo: calendarRepo,
		periodRepo:   periodRepo,
		parser:       parser,
		logger:       logger.WithField("component", "calendar_sync"),
		now:          time.Now,
	}
}

// SyncCalendar synchronizes a single calendar and returns the result.
func (s *SyncService) SyncCalendar(ctx context.Context, calendarID string) (*models.CalendarSyncResult, error) {
	calendar, err := s.calendarRepo.GetByID(ctx, calendarID)
	if err != nil {
		return nil, fmt.Errorf("getting calendar: %w", err)
	}
	if calendar == nil {
		return nil, ErrCalendarNotFound
	}

	log := s.logger.WithFields(logrus.Fields{"calendar_id": calendar.ID, "calendar": calendar.Name})
	result := &models.CalendarSyncResult{
		CalendarID:   calendar.ID,
		CalendarName: calendar.Name,
		SyncedAt:     s.now().UTC(),
	}

	if err := s.calendarRepo.UpdateSyncStatus(ctx, calendarID, models.SyncStatusSyncing, nil); err != nil {
		log.WithError(err).Warn("updating sync status")
	}

	events, err := s.parser.FetchAndParse(ctx, calendar.URL)
	if err != nil {
		s.fail(ctx, log, calendarID, err)
		result.Error = err
		return result, err
	}

	result.EventsFound = len(events)
	events = FilterFutureEvents(events, s.now())

	err = s.db.Transaction(ctx, func(tx *sql.Tx) error {
		repo := s.periodRepo.WithTx(tx)

		seen := make(map[string]bool, len(events))
		keep := make([]string, 0, len(events))
		for _, event := range events {
			if seen[event.UID] {
				continue
			}
			seen[event.UID] = true
			keep = append(keep, event.UID)

			created, updated, err := s.processEvent(ctx, repo, calendar, event)
			if err != nil {
				return err
			}
			if created {
				result.PeriodsCreated++
			} else if updated {
				result.PeriodsUpdated++
			}
		}

		removed, err := repo.DeleteImportedExcept(ctx, calendar.ID, keep)
		if err != nil {
			return err
		}
		result.PeriodsRemoved = removed
		return nil
	})
	if err != nil {
		s.fail(ctx, log, calendarID, err)
		result.Error = err
		return result, err
	}

	if err := s.calendarRepo.UpdateSyncStatus(ctx, calendarID, models.SyncStatusSuccess, nil); err != nil {
		log.WithError(err).Warn("updating sync status")
	}

	log.WithFields(logrus.Fields{
		"events":  result.EventsFound,
		"created": result.PeriodsCreated,
		"updated": result.PeriodsUpdated,
		"removed": result.PeriodsRemoved,
	}).Info("calendar synced")

	return result, nil
}

func (s *SyncService) fail(ctx context.Context, log logrus.FieldLogger, calendarID string, cause error) {
	msg := cause.Error()
	if err := s.calendarRepo.UpdateSyncStatus(ctx, calendarID, models.SyncStatusError, &msg); err != nil {
		log.WithError(err).Warn("updating sync status")
	}
	log.WithError(cause).Warn("calendar sync failed")
}

// processEvent creates or updates the period imported from one event.
func (s *SyncService) processEvent(ctx context.Context, repo *storage.UnavailableRepository, calendar *models.CalendarSubscription, event models.CalendarEvent) (created, updated bool, err error) {
	existing, err := repo.GetByEventUID(ctx, calendar.ID, event.UID)
	if err != nil {
		return false, false, fmt.Errorf("checking existing period: %w", err)
	}

	r := EventRange(event)

	if existing != nil {
		if existing.StartDate.Equal(r.Start) && existing.EndDate.Equal(r.End) && existing.Reason == calendar.Name {
			return false, false, nil
		}
		existing.StartDate = r.Start
		existing.EndDate = r.End
		existing.Reason = calendar.Name
		if err := repo.Update(ctx, existing); err != nil {
			return false, false, fmt.Errorf("updating period: %w", err)
		}
		return false, true, nil
	}

	// Event summaries from booking channels often carry guest names, so the
	// period is labelled with the calendar name only.
	calendarID, uid := calendar.ID, event.UID
	period := &models.UnavailablePeriod{
		StartDate:  r.Start,
		EndDate:    r.End,
		Reason:     calendar.Name,
		CalendarID: &calendarID,
		EventUID:   &uid,
	}
	if err := repo.Create(ctx, period); err != nil {
		return false, false, fmt.Errorf("creating period: %w", err)
	}

	return true, false, nil
}

// SyncAllEnabled synchronizes all enabled calendars.
func (s *SyncService) SyncAllEnabled(ctx context.Context) ([]models.CalendarSyncResult, error) {
	calendars, err := s.calendarRepo.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing enabled calendars: %w", err)
	}

	var results []models.CalendarSyncResult
	for _, cal := range calendars {
		result, err := s.SyncCalendar(ctx, cal.ID)
		if err != nil && result == nil {
			result = &models.CalendarSyncResult{
				CalendarID:   cal.ID,
				CalendarName: cal.Name,
				Error:        err,
				SyncedAt:     s.now().UTC(),
			}
		}
		results = append(results, *result)
	}

	return results, nil
}

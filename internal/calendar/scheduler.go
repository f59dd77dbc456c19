package calendar

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/bnb-reservations/backend/internal/storage"
	"github.com/bnb-reservations/backend/internal/storage/models"
	"github.com/bnb-reservations/backend/internal/websocket"
)

// Scheduler manages periodic calendar sync jobs.
type Scheduler struct {
	cron         *cron.Cron
	syncService  *SyncService
	calendarRepo *storage.CalendarRepository
	broadcaster  *websocket.EventBroadcaster
	logger       logrus.FieldLogger

	// Track jobs per calendar
	jobs   map[string]cron.EntryID
	jobsMu sync.RWMutex

	defaultIntervalMin int
}

// NewScheduler creates a new calendar sync scheduler. broadcaster may be nil.
func NewScheduler(
	syncService *SyncService,
	calendarRepo *storage.CalendarRepository,
	broadcaster *websocket.EventBroadcaster,
	defaultIntervalMin int,
	logger logrus.FieldLogger,
) *Scheduler {
	if defaultIntervalMin < models.MinSyncIntervalMin {
		defaultIntervalMin = 15
	}

	return &Scheduler{
		cron:               cron.New(cron.WithSeconds()),
		syncService:        syncService,
		calendarRepo:       calendarRepo,
		broadcaster:        broadcaster,
		logger:             logger.WithField("component", "calendar_scheduler"),
		jobs:               make(map[string]cron.EntryID),
		defaultIntervalMin: defaultIntervalMin,
	}
}

// Start begins the scheduler and loads all enabled calendars.
func (s *Scheduler) Start(ctx context.Context) error {
	calendars, err := s.calendarRepo.ListEnabled(ctx)
	if err != nil {
		return err
	}

	for _, cal := range calendars {
		s.ScheduleCalendar(cal)
	}

	// Picks up calendars added or changed outside the API handlers.
	if _, err := s.cron.AddFunc("@every 5m", func() {
		s.refreshSchedules(context.Background())
	}); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.WithField("calendars", len(calendars)).Info("calendar scheduler started")

	return nil
}

// Stop waits for running jobs and shuts the scheduler down.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("calendar scheduler stopped")
}

// ScheduleCalendar adds or updates a calendar's sync schedule.
func (s *Scheduler) ScheduleCalendar(cal models.CalendarSubscription) {
	if !cal.Enabled {
		s.UnscheduleCalendar(cal.ID)
		return
	}

	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	if existingID, exists := s.jobs[cal.ID]; exists {
		s.cron.Remove(existingID)
		delete(s.jobs, cal.ID)
	}

	minutes := cal.SyncIntervalMin
	if minutes < models.MinSyncIntervalMin {
		minutes = s.defaultIntervalMin
	}

	id, name := cal.ID, cal.Name
	entryID, err := s.cron.AddFunc(minutesToCronSpec(minutes), func() {
		s.syncCalendar(id, name)
	})
	if err != nil {
		s.logger.WithError(err).WithField("calendar_id", cal.ID).Error("scheduling calendar")
		return
	}

	s.jobs[cal.ID] = entryID
	s.logger.WithFields(logrus.Fields{
		"calendar_id":  cal.ID,
		"calendar":     cal.Name,
		"interval_min": minutes,
	}).Debug("calendar scheduled")
}

// UnscheduleCalendar removes a calendar from the sync schedule.
func (s *Scheduler) UnscheduleCalendar(calendarID string) {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	if entryID, exists := s.jobs[calendarID]; exists {
		s.cron.Remove(entryID)
		delete(s.jobs, calendarID)
		s.logger.WithField("calendar_id", calendarID).Debug("calendar unscheduled")
	}
}

// TriggerSync runs an immediate sync for a calendar in the background.
func (s *Scheduler) TriggerSync(calendarID string) {
	go func() {
		ctx := context.Background()
		cal, err := s.calendarRepo.GetByID(ctx, calendarID)
		if err != nil || cal == nil {
			s.logger.WithField("calendar_id", calendarID).Warn("calendar not found for sync")
			return
		}
		s.syncCalendar(cal.ID, cal.Name)
	}()
}

func (s *Scheduler) syncCalendar(calendarID, calendarName string) {
	result, err := s.syncService.SyncCalendar(context.Background(), calendarID)
	if err != nil {
		s.broadcaster.CalendarSyncError(calendarID, calendarName, err)
		return
	}

	s.broadcaster.CalendarSyncCompleted(*result)
}

// refreshSchedules reloads calendar schedules from the database.
func (s *Scheduler) refreshSchedules(ctx context.Context) {
	calendars, err := s.calendarRepo.ListEnabled(ctx)
	if err != nil {
		s.logger.WithError(err).Error("refreshing calendar schedules")
		return
	}

	currentIDs := make(map[string]bool)
	for _, cal := range calendars {
		currentIDs[cal.ID] = true
		if s.unscheduled(cal.ID) {
			s.ScheduleCalendar(cal)
		}
	}

	s.jobsMu.Lock()
	for calID, entryID := range s.jobs {
		if !currentIDs[calID] {
			s.cron.Remove(entryID)
			delete(s.jobs, calID)
		}
	}
	s.jobsMu.Unlock()
}

// unscheduled reports whether the calendar has no sync job. The refresh only
// adds missing jobs; interval edits reschedule through ScheduleCalendar.
func (s *Scheduler) unscheduled(calendarID string) bool {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()
	_, ok := s.jobs[calendarID]
	return !ok
}

func minutesToCronSpec(minutes int) string {
	return "@every " + (time.Duration(minutes) * time.Minute).String()
}

// ScheduledCalendars returns the IDs of calendars with a sync job.
func (s *Scheduler) ScheduledCalendars() []string {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()

	ids := make([]string, 0, len(s.jobs))
	for id := range s.jobs {
		ids = append(ids, id)
	}
	return ids
}

// NextRun returns the next scheduled run time for a calendar.
func (s *Scheduler) NextRun(calendarID string) *time.Time {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()

	if entryID, exists := s.jobs[calendarID]; exists {
		entry := s.cron.Entry(entryID)
		if !entry.Next.IsZero() {
			return &entry.Next
		}
	}
	return nil
}

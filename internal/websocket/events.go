package websocket

import (
	"github.com/bnb-reservations/backend/internal/storage/models"
)

// EventBroadcaster turns domain changes into WebSocket messages.
// A nil *EventBroadcaster is valid and drops every event.
type EventBroadcaster struct {
	hub *Hub
}

// NewEventBroadcaster creates a new event broadcaster.
func NewEventBroadcaster(hub *Hub) *EventBroadcaster {
	if hub == nil {
		return nil
	}
	return &EventBroadcaster{hub: hub}
}

// BookingChanged announces a created, updated or cancelled booking.
func (b *EventBroadcaster) BookingChanged(msgType MessageType, booking models.Booking) {
	b.broadcast(NewMessage(msgType, RangePayload{
		ID:        booking.ID,
		RoomID:    booking.RoomID,
		StartDate: booking.StartDate,
		EndDate:   booking.EndDate,
	}))
}

// UnavailableChanged announces a created or deleted blackout period.
func (b *EventBroadcaster) UnavailableChanged(msgType MessageType, period models.UnavailablePeriod) {
	b.broadcast(NewMessage(msgType, RangePayload{
		ID:        period.ID,
		StartDate: period.StartDate,
		EndDate:   period.EndDate,
	}))
}

// CalendarSyncCompleted sends a calendar sync completed event.
func (b *EventBroadcaster) CalendarSyncCompleted(result models.CalendarSyncResult) {
	payload := CalendarSyncPayload{
		CalendarID:     result.CalendarID,
		CalendarName:   result.CalendarName,
		Status:         "success",
		EventsFound:    result.EventsFound,
		PeriodsCreated: result.PeriodsCreated,
		PeriodsUpdated: result.PeriodsUpdated,
		PeriodsRemoved: result.PeriodsRemoved,
	}

	if result.Error != nil {
		payload.Status = "error"
	}

	b.broadcast(NewMessage(TypeCalendarSyncCompleted, payload))
}

// CalendarSyncError sends a calendar sync error event.
func (b *EventBroadcaster) CalendarSyncError(calendarID, calendarName string, err error) {
	b.broadcast(NewMessage(TypeCalendarSyncError, CalendarSyncErrorPayload{
		CalendarID:   calendarID,
		CalendarName: calendarName,
		Error:        "sync_error",
		Message:      err.Error(),
	}))
}

// Notification sends a notification to all connected clients.
func (b *EventBroadcaster) Notification(level, title, message string) {
	b.broadcast(NewMessage(TypeNotification, NotificationPayload{
		Level:       level,
		Title:       title,
		Message:     message,
		Dismissible: true,
	}))
}

func (b *EventBroadcaster) broadcast(msg Message) {
	if b == nil {
		return
	}

	data, err := msg.JSON()
	if err != nil {
		b.hub.logger.WithError(err).Error("encoding websocket message")
		return
	}

	b.hub.Broadcast(data)
}

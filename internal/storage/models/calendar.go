// Package models contains the domain models for the application.
package models

import (
	"time"
)

// CalendarSubscription is an external iCal feed (another booking channel)
// whose events are imported as unavailable periods.
type CalendarSubscription struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	URL             string     `json:"url"`
	SyncIntervalMin int        `json:"sync_interval_min"`
	LastSyncAt      *time.Time `json:"last_sync_at,omitempty"`
	SyncStatus      string     `json:"sync_status"`
	SyncError       *string    `json:"sync_error,omitempty"`
	Enabled         bool       `json:"enabled"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// SyncStatus constants
const (
	SyncStatusPending = "pending"
	SyncStatusSyncing = "syncing"
	SyncStatusSuccess = "success"
	SyncStatusError   = "error"
)

// MinSyncIntervalMin is the shortest allowed polling interval.
const MinSyncIntervalMin = 5

// CalendarEvent represents a parsed event from an iCal feed.
type CalendarEvent struct {
	UID         string    `json:"uid"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	AllDay      bool      `json:"all_day"`
	Location    string    `json:"location,omitempty"`
}

// CalendarSyncResult contains the results of a calendar sync operation.
type CalendarSyncResult struct {
	CalendarID     string    `json:"calendar_id"`
	CalendarName   string    `json:"calendar_name"`
	EventsFound    int       `json:"events_found"`
	PeriodsCreated int       `json:"periods_created"`
	PeriodsUpdated int       `json:"periods_updated"`
	PeriodsRemoved int       `json:"periods_removed"`
	Error          error     `json:"-"`
	SyncedAt       time.Time `json:"synced_at"`
}

package models

// Setting keys.
const (
	SettingCheckinTime            = "checkin_time"
	SettingCheckoutTime           = "checkout_time"
	SettingDefaultSyncIntervalMin = "default_sync_interval_min"
)

// Settings are host-editable site settings.
type Settings struct {
	CheckinTime            string `json:"checkin_time"`
	CheckoutTime           string `json:"checkout_time"`
	DefaultSyncIntervalMin string `json:"default_sync_interval_min"`
}

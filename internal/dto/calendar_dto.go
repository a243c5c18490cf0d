package dto

import "time"

type SyncRequest struct {
	CalendarID string     `json:"calendar_id"`
	FromDate   *time.Time `json:"from_date"`
	ToDate     *time.Time `json:"to_date"`
}

type SyncResponse struct {
	Imported int `json:"imported"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
	Total    int `json:"total"`
}

type PushResponse struct {
	Message         string `json:"message"`
	ExternalEventID string `json:"event_id"`
	Link            string `json:"link"`
}

type AuthURLResponse struct {
	AuthURL string `json:"auth_url"`
}

type ConnectionStatus struct {
	IsConnected bool       `json:"is_connected"`
	LastSynced  *time.Time `json:"last_synced"`
}

type CalendarInfo struct {
	ID       string `json:"id"`
	Summary  string `json:"summary"`
	TimeZone string `json:"time_zone"`
}

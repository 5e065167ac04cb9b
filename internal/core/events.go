package core

import "time"

// Load origins.
const (
	OriginUpload  = "upload"
	OriginDefault = "default"
)

// LoadEvent describes one successful dataset load.
type LoadEvent struct {
	ID             string    `json:"id"`
	SessionID      string    `json:"-"`
	Origin         string    `json:"origin"`
	Dataset        string    `json:"dataset"`
	Format         Format    `json:"format"`
	Rows           int       `json:"rows"`
	UndatedRows    int       `json:"undated_rows"`
	MissingColumns []string  `json:"missing_columns,omitempty"`
	LoadedAt       time.Time `json:"loaded_at"`
}

// NewLoadEvent summarizes ds as loaded for a session.
func NewLoadEvent(id, sessionID, origin string, ds *Dataset) LoadEvent {
	ev := LoadEvent{ID: id, SessionID: sessionID, Origin: origin}
	if ds != nil {
		ev.Dataset = ds.Name
		ev.Format = ds.Format
		ev.Rows = ds.Len()
		ev.UndatedRows = ds.UndatedCount()
		ev.MissingColumns = append([]string(nil), ds.MissingColumns...)
		ev.LoadedAt = ds.LoadedAt
	}
	if ev.LoadedAt.IsZero() {
		ev.LoadedAt = time.Now().UTC()
	}
	return ev
}

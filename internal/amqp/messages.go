package amqp

import (
	"encoding/json"
	"time"

	"salesboard/internal/core"
)

// MessageTypeDatasetLoaded is set as the AMQP type of load notifications.
const MessageTypeDatasetLoaded = "dataset.loaded"

// DatasetLoadedMessage announces that a session loaded a dataset.
type DatasetLoadedMessage struct {
	LoadID         string    `json:"load_id"`
	SessionID      string    `json:"session_id"`
	Origin         string    `json:"origin"`
	Dataset        string    `json:"dataset"`
	Format         string    `json:"format"`
	Rows           int       `json:"rows"`
	UndatedRows    int       `json:"undated_rows"`
	MissingColumns []string  `json:"missing_columns,omitempty"`
	LoadedAt       time.Time `json:"loaded_at"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewDatasetLoadedMessage builds the message for ev.
func NewDatasetLoadedMessage(ev core.LoadEvent) *DatasetLoadedMessage {
	return &DatasetLoadedMessage{
		LoadID:         ev.ID,
		SessionID:      ev.SessionID,
		Origin:         ev.Origin,
		Dataset:        ev.Dataset,
		Format:         string(ev.Format),
		Rows:           ev.Rows,
		UndatedRows:    ev.UndatedRows,
		MissingColumns: ev.MissingColumns,
		LoadedAt:       ev.LoadedAt,
		Timestamp:      time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *DatasetLoadedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// DatasetLoadedMessageFromJSON creates a message from JSON bytes
func DatasetLoadedMessageFromJSON(data []byte) (*DatasetLoadedMessage, error) {
	var msg DatasetLoadedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Event converts the message back into a load event.
func (m *DatasetLoadedMessage) Event() core.LoadEvent {
	return core.LoadEvent{
		ID:             m.LoadID,
		SessionID:      m.SessionID,
		Origin:         m.Origin,
		Dataset:        m.Dataset,
		Format:         core.Format(m.Format),
		Rows:           m.Rows,
		UndatedRows:    m.UndatedRows,
		MissingColumns: m.MissingColumns,
		LoadedAt:       m.LoadedAt,
	}
}

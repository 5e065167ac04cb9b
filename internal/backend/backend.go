package backend

import (
	"context"
	"fmt"

	"salesboard/internal/config"
	"salesboard/internal/loader"
	"salesboard/internal/services"
	"salesboard/internal/storage"
)

// SourceType selects where the default dataset is read from.
type SourceType string

const (
	FileSource   SourceType = "file"
	SheetsSource SourceType = "sheets"
	// MemorySource reads the dataset file once at startup and serves the
	// in-memory copy afterwards.
	MemorySource SourceType = "memory"
)

// String implements fmt.Stringer
func (st SourceType) String() string {
	return string(st)
}

// IsValid returns true if the source type is valid
func (st SourceType) IsValid() bool {
	switch st {
	case FileSource, SheetsSource, MemorySource:
		return true
	default:
		return false
	}
}

// Config holds configuration for backend creation
type Config struct {
	Source SourceType

	// File and memory sources
	DatasetPath string

	// Google Sheets source
	SpreadsheetID string
	SheetRange    string

	// Optional load history; empty disables it
	HistoryDBPath string

	// Optional load events; empty URL disables them
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	source := SourceType(appConfig.DataSource)
	if !source.IsValid() {
		return Config{}, fmt.Errorf("invalid data source in config: %s", appConfig.DataSource)
	}

	return Config{
		Source:        source,
		DatasetPath:   appConfig.DefaultDatasetPath,
		SpreadsheetID: appConfig.GoogleSpreadsheetID,
		SheetRange:    appConfig.GoogleSheetRange,
		HistoryDBPath: appConfig.HistoryDBPath,
		AMQPURL:       appConfig.AMQPURL,
		AMQPExchange:  appConfig.AMQPExchange,
		AMQPQueue:     appConfig.AMQPQueue,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	switch c.Source {
	case FileSource, MemorySource:
		if c.DatasetPath == "" {
			return fmt.Errorf("dataset path is required for %s source", c.Source)
		}
	case SheetsSource:
		if c.SpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets source")
		}
	default:
		return fmt.Errorf("invalid source type: %s", c.Source)
	}
	if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPQueue == "") {
		return fmt.Errorf("AMQP exchange and queue are required when AMQP URL is set")
	}
	return nil
}

// Result is the data layer of the dashboard. History and Publisher are nil
// when disabled.
type Result struct {
	Defaults  *loader.DefaultSource
	History   storage.LoadHistory
	Publisher services.EventPublisher
}

// Factory creates the data layer based on configuration
type Factory interface {
	Create(ctx context.Context, config Config) (*Result, error)
}

package backend

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"salesboard/internal/amqp"
	"salesboard/internal/core"
	"salesboard/internal/loader"
	"salesboard/internal/log"
	gsheet "salesboard/internal/sheets/google"
	"salesboard/internal/sheets/memory"
	"salesboard/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) *DefaultFactory {
	if logger == nil {
		logger = log.Default()
	}
	return &DefaultFactory{logger: logger}
}

// Create builds the default dataset source and the optional load sinks. A
// broker that cannot be reached disables load events instead of failing.
func (f *DefaultFactory) Create(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	res := &Result{}

	switch config.Source {
	case SheetsSource:
		cli, err := gsheet.New(ctx, gsheet.Config{SpreadsheetID: config.SpreadsheetID, Range: config.SheetRange})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		res.Defaults = loader.NewSheetSource(cli)
	case MemorySource:
		defaults, err := memorySource(config.DatasetPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize memory source: %w", err)
		}
		res.Defaults = defaults
	default:
		res.Defaults = loader.NewFileSource(config.DatasetPath)
	}
	f.logger.Info("Default dataset configured",
		log.FieldSource, config.Source.String(),
		"location", res.Defaults.Location())

	if config.HistoryDBPath != "" {
		repo, err := storage.NewSQLiteRepository(config.HistoryDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize history database: %w", err)
		}
		res.History = repo
		f.logger.Info("Load history enabled", "db_path", config.HistoryDBPath)
	} else {
		f.logger.Info("Load history disabled - no HISTORY_DB_PATH provided")
	}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without load events", log.FieldError, err)
		} else {
			res.Publisher = client
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	return res, nil
}

// memorySource loads the dataset at path and keeps its cells in a memory
// store, so later changes to the file do not reach the dashboard.
func memorySource(path string) (*loader.DefaultSource, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &core.SourceUnavailableError{Location: path}
		}
		return nil, err
	}
	defer f.Close()

	ds, err := loader.Load(path, f)
	if err != nil {
		return nil, err
	}
	rows := make([][]string, 0, len(ds.Records)+1)
	rows = append(rows, ds.Header)
	for _, rec := range ds.Records {
		rows = append(rows, rec.Values)
	}
	store := memory.New(ds.Name, rows)
	return loader.NewTableSource(store, "memory:"+path, ds.Format), nil
}

package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"bankreport/internal/amqp"
	gsheet "bankreport/internal/sheets/google"
	"bankreport/internal/storage"
)

// DefaultFactory implements the Factory interface.
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory.
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend opens the index, then the optional AMQP client and Sheets
// writer. On error everything opened so far is closed again.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	index, err := f.createIndex(config)
	if err != nil {
		return nil, err
	}
	res := &Result{Index: index}
	res.Cleanup = func() error {
		var errs []error
		if res.AMQP != nil {
			errs = append(errs, res.AMQP.Close())
		}
		errs = append(errs, res.Index.Close())
		return errors.Join(errs...)
	}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		switch {
		case err != nil && config.RequireAMQP:
			_ = res.Cleanup()
			return nil, fmt.Errorf("failed to connect to AMQP: %w", err)
		case err != nil:
			f.logger.Warn("Failed to initialize AMQP client, continuing without report messages", "error", err)
		default:
			res.AMQP = client
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	if config.WithSummary && config.GoogleSpreadsheetID != "" {
		client, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:      config.GoogleSpreadsheetID,
			SheetName:          config.GoogleSheetName,
			ServiceAccountJSON: config.GoogleServiceAccountJSON,
			ServiceAccountFile: config.GoogleServiceAccountFile,
		})
		if err != nil {
			_ = res.Cleanup()
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		res.Summary = client
	}

	return res, nil
}

func (f *DefaultFactory) createIndex(config Config) (Index, error) {
	switch config.Type {
	case SQLiteIndex:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite index", "db_path", config.SQLiteDBPath)
		return repo, nil
	case MemoryIndex:
		f.logger.Info("Initialized memory index")
		return storage.NewMemoryIndex(), nil
	default:
		return nil, fmt.Errorf("unsupported index backend: %s", config.Type)
	}
}

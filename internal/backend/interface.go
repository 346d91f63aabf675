// Package backend builds the storage and messaging pieces selected by
// configuration.
package backend

import (
	"context"

	"bankreport/internal/amqp"
	"bankreport/internal/services"
	"bankreport/internal/sheets"
)

// Index is a report index the process owns and must close.
type Index interface {
	services.ReportIndex
	Ping(ctx context.Context) error
	Close() error
}

// CleanupFunc releases resources created by the factory.
type CleanupFunc func() error

// Result holds what the factory created. AMQP and Summary are nil when
// their configuration is absent.
type Result struct {
	Index   Index
	AMQP    *amqp.Client
	Summary sheets.SummaryWriter
	Cleanup CleanupFunc
}

// Publisher returns the AMQP client as a services.Publisher, or a nil
// interface when messaging is disabled.
func (r *Result) Publisher() services.Publisher {
	if r.AMQP == nil {
		return nil
	}
	return r.AMQP
}

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation.
type Config struct {
	Type IndexType

	SQLiteDBPath string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
	// RequireAMQP turns a failed broker connection into an error instead of a
	// warning. The worker cannot run without one.
	RequireAMQP bool

	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	// WithSummary creates the Sheets summary writer when a spreadsheet is set.
	WithSummary bool
}

// IndexType names a report index implementation.
type IndexType string

const (
	SQLiteIndex IndexType = "sqlite"
	MemoryIndex IndexType = "memory"
)

func (t IndexType) String() string {
	return string(t)
}

func (t IndexType) IsValid() bool {
	switch t {
	case SQLiteIndex, MemoryIndex:
		return true
	default:
		return false
	}
}

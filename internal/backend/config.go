package backend

import (
	"errors"
	"fmt"

	"bankreport/internal/config"
)

// FromAppConfig converts the application config to backend config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	indexType := IndexType(appConfig.IndexBackend)
	if !indexType.IsValid() {
		return Config{}, fmt.Errorf("invalid index backend in config: %s", appConfig.IndexBackend)
	}

	return Config{
		Type:         indexType,
		SQLiteDBPath: appConfig.SQLiteDBPath,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleSheetName:          appConfig.GoogleSheetName,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
	}, nil
}

// Validate validates the backend configuration.
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid index backend: %s", c.Type)
	}
	if c.Type == SQLiteIndex && c.SQLiteDBPath == "" {
		return errors.New("SQLite database path is required for sqlite index")
	}
	if c.RequireAMQP && c.AMQPURL == "" {
		return errors.New("AMQP URL is required")
	}
	if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPQueue == "") {
		return errors.New("AMQP exchange and queue are required when AMQP URL is set")
	}
	if c.WithSummary && c.GoogleSpreadsheetID != "" &&
		c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
		return errors.New("service account credentials are required for the Sheets summary")
	}
	return nil
}

// IndexTypeStrings returns all valid index backend names.
func IndexTypeStrings() []string {
	return []string{SQLiteIndex.String(), MemoryIndex.String()}
}

package backend

import (
	"errors"
	"fmt"

	"finsheet/internal/config"
	"finsheet/internal/sheets/breaker"
	"finsheet/internal/sheets/google"
)

// Config holds what the factory needs for every backend type.
type Config struct {
	Type BackendType

	// sheets
	Google  google.Config
	Breaker bool
	// BreakerConfig applies when Breaker is set; zero means breaker.DefaultConfig.
	BreakerConfig breaker.Config

	// sqlite
	SQLiteDBPath string

	// memory: partitions to create up front, in order
	MemoryPartitions []string
}

// FromAppConfig converts the application config to backend config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type: backendType,
		Google: google.Config{
			SpreadsheetID:   appConfig.GoogleSheetID,
			ClientEmail:     appConfig.GoogleClientEmail,
			PrivateKey:      appConfig.GooglePrivateKey,
			CredentialsJSON: appConfig.GoogleServiceAccountJSON,
			CredentialsFile: appConfig.GoogleServiceAccountFile,
		},
		Breaker:      appConfig.SheetsBreaker,
		SQLiteDBPath: appConfig.SQLiteDBPath,
	}, nil
}

func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return errors.New("SQLite database path is required for sqlite backend")
		}
	case SheetsBackend:
		if c.Google.SpreadsheetID == "" {
			return errors.New("spreadsheet id is required for sheets backend")
		}
	}
	return nil
}

// BackendTypeStrings lists the valid backend names.
func BackendTypeStrings() []string {
	return []string{MemoryBackend.String(), SheetsBackend.String(), SQLiteBackend.String()}
}

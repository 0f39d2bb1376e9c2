package backend

import (
	"errors"
	"fmt"

	"painel/internal/config"
	"painel/internal/core"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:                backendType,
		DataDirectory:       appConfig.DataDir,
		Files:               appConfig.Files(),
		SQLiteDBPath:        appConfig.SQLiteDBPath,
		GoogleSpreadsheetID: appConfig.GoogleSpreadsheetID,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case XLSXBackend:
		if c.DataDirectory == "" {
			return errors.New("data directory is required for xlsx backend")
		}
		for _, kind := range core.Kinds() {
			if c.Files[kind] == "" {
				return fmt.Errorf("file for %s is required for xlsx backend", kind)
			}
		}
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return errors.New("SQLite database path is required for sqlite backend")
		}
	case SheetsBackend:
		if c.GoogleSpreadsheetID == "" {
			return errors.New("Google Spreadsheet ID is required for sheets backend")
		}
	case MemoryBackend:
		// DataDirectory is optional; without it the store starts empty
	}

	return nil
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	return []string{
		XLSXBackend.String(),
		SheetsBackend.String(),
		SQLiteBackend.String(),
		MemoryBackend.String(),
	}
}

package app

import (
	"fmt"
	"path/filepath"

	"edgescan/internal/paths"
	"edgescan/internal/storage"
	"edgescan/internal/storage/sqlite"
)

// App represents the application context shared by all commands.
type App struct {
	Storage storage.Storage
	DBPath  string
}

// New creates a new application instance
func New() (*App, error) {
	dataDir, err := paths.DataDir()
	if err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "edgescan.db")
	store, err := sqlite.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	return &App{
		Storage: store,
		DBPath:  dbPath,
	}, nil
}

// Close closes the application and releases resources
func (a *App) Close() error {
	if a.Storage != nil {
		return a.Storage.Close()
	}
	return nil
}

// Package rungate wires the run validation and leaderboard core into a ready
// service graph. The HTTP surface that calls into it lives elsewhere; this
// package is the embedding point.
package rungate

import (
	"fmt"

	"github.com/spf13/afero"

	"rungate/config"
	"rungate/internal/blobstore"
	"rungate/internal/database"
	"rungate/internal/logging"
	"rungate/internal/xp"
	"rungate/services/leaderboard"
	"rungate/services/session"
)

// App is the assembled core: session lifecycle in front, leaderboard merge
// behind it, one database and one replay store underneath.
type App struct {
	Config      *config.Manager
	DB          *database.DB
	Replays     *blobstore.Store
	Sessions    *session.Service
	Leaderboard *leaderboard.Service
}

// New loads settings, installs logging and connects the service graph.
func New(configPath string) (*App, error) {
	cfg := config.NewManager(configPath)
	settings, err := cfg.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	logging.Setup(logging.Options{
		Level:      settings.Logging.Level,
		FilePath:   settings.Logging.FilePath,
		MaxSizeMB:  settings.Logging.MaxSizeMB,
		MaxBackups: settings.Logging.MaxBackups,
	})

	db, err := database.NewDB(database.Config{DatabasePath: settings.Database.Path})
	if err != nil {
		return nil, err
	}

	replays := blobstore.New(afero.NewOsFs(), settings.Replays.Root)
	merger := leaderboard.NewService(db, replays, xp.New())

	return &App{
		Config:      cfg,
		DB:          db,
		Replays:     replays,
		Sessions:    session.NewService(db, merger, nil),
		Leaderboard: merger,
	}, nil
}

// Close releases the database connection.
func (a *App) Close() error {
	return a.DB.Close()
}

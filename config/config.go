// Package config loads and persists the service settings file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
)

// Settings is the on-disk configuration document.
type Settings struct {
	Database DatabaseSettings `json:"database"`
	Replays  ReplaySettings   `json:"replays"`
	Logging  LoggingSettings  `json:"logging"`
}

type DatabaseSettings struct {
	Path string `json:"path"`
}

// ReplaySettings configures the replay blob store.
type ReplaySettings struct {
	// Root is the directory (or mounted object store) replay files live
	// under.
	Root string `json:"root"`
}

type LoggingSettings struct {
	Level      string `json:"level"`
	FilePath   string `json:"filePath"`
	MaxSizeMB  int    `json:"maxSizeMB"`
	MaxBackups int    `json:"maxBackups"`
}

// Default returns the settings used when no file exists yet.
func Default() *Settings {
	return &Settings{
		Database: DatabaseSettings{Path: "data/rungate.db"},
		Replays:  ReplaySettings{Root: "data/replays"},
		Logging: LoggingSettings{
			Level:      "info",
			FilePath:   "data/logs/rungate.log",
			MaxSizeMB:  50,
			MaxBackups: 5,
		},
	}
}

// Manager reads and writes the settings file. Reads after the first are
// served from memory; Save rewrites both.
type Manager struct {
	path string

	mu       sync.RWMutex
	settings *Settings
}

func NewManager(path string) *Manager {
	return &Manager{path: path}
}

// Load returns the current settings, reading the file on first use. A
// missing file yields defaults without creating it.
func (m *Manager) Load() (*Settings, error) {
	m.mu.RLock()
	if m.settings != nil {
		defer m.mu.RUnlock()
		return m.settings, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settings != nil {
		return m.settings, nil
	}

	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		m.settings = Default()
		return m.settings, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", m.path, err)
	}
	m.settings = &s
	return m.settings, nil
}

// Save persists settings to disk and makes them current.
func (m *Manager) Save(s *Settings) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if dir := filepath.Dir(m.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create settings directory: %w", err)
		}
	}
	if err := os.WriteFile(m.path, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	m.mu.Lock()
	m.settings = s
	m.mu.Unlock()
	return nil
}

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Store persists AppConfig as JSON, writing through a temp file and atomic
// rename so a crash mid-write never corrupts config.json, and keeping a
// ".bak" copy of the last known-good file to rescue from.
type Store struct {
	path string
}

// NewStore targets path (conventionally "config.json" under the app's
// config directory).
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the persisted config, falling back to the ".bak" rescue copy
// if the primary file is missing or unparsable, and to zero-value defaults
// if neither exists.
func (s *Store) Load() (AppConfig, error) {
	cfg, err := loadJSON[AppConfig](s.path)
	if err == nil {
		return cfg, nil
	}
	if os.IsNotExist(err) {
		if bakCfg, bakErr := loadJSON[AppConfig](s.path + ".bak"); bakErr == nil {
			return bakCfg, nil
		}
		return AppConfig{}, nil
	}

	bakCfg, bakErr := loadJSON[AppConfig](s.path + ".bak")
	if bakErr == nil {
		return bakCfg, nil
	}
	return AppConfig{}, fmt.Errorf("config: load %s: %w", s.path, err)
}

// Save writes cfg atomically: marshal -> temp file in the same directory ->
// fsync -> rename over the previous ".bak" -> rename temp into place.
func (s *Store) Save(cfg AppConfig) error {
	return saveJSON(s.path, cfg)
}

func loadJSON[T any](path string) (T, error) {
	var zero T
	data, err := os.ReadFile(path)
	if err != nil {
		return zero, err
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return zero, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return v, nil
}

func saveJSON[T any](path string, v T) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("config: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("config: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("config: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("config: close temp file: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		_ = os.Rename(path, path+".bak")
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("config: rename into place: %w", err)
	}
	return nil
}

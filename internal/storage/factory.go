package storage

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/agenttop/agenttop/internal/config"
)

// NewFromConfig opens the configured SQLite store, or returns nil when
// persistence is disabled (empty db_path) or unavailable. A nil store
// means the dashboard runs purely in memory; this is never an error.
func NewFromConfig(cfg config.StorageConfig) *Store {
	if cfg.DBPath == "" {
		return nil
	}

	store, err := Open(expandTilde(cfg.DBPath), cfg.RetentionDays)
	if err != nil {
		log.Printf("WARNING: SQLite storage unavailable (%v), running without persistence", err)
		return nil
	}
	return store
}

func expandTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

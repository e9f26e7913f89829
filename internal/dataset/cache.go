package dataset

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"retail-dashboard/internal/models"
)

const cacheVersion = "v1"

type cacheEntry struct {
	Rows      []models.Transaction
	Skipped   int
	WrittenAt time.Time
}

func cacheFilename(dir, path string) string {
	name := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(filepath.Clean(path))
	return filepath.Join(dir, fmt.Sprintf("%s_%s.gob", name, cacheVersion))
}

func writeCache(dir, path string, entry *cacheEntry) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	file, err := os.Create(cacheFilename(dir, path))
	if err != nil {
		return err
	}
	defer file.Close()

	return gob.NewEncoder(file).Encode(entry)
}

func readCache(dir, path string) (*cacheEntry, error) {
	file, err := os.Open(cacheFilename(dir, path))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var entry cacheEntry
	if err := gob.NewDecoder(file).Decode(&entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

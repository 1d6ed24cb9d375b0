package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const RecordingExt = ".avi"

// Returns the file a recording started at `start` is written to, creating `dir` if needed
func GetRecordingPath(dir string, start time.Time, session string) (string, error) {
	if dir == "" {
		return "", errors.New("no recording directory configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create recording directory: %w", err)
	}

	name := start.Format("2006-01-02_15-04")
	if session != "" {
		name += "_" + ShortID(session)
	}
	return filepath.Join(dir, name+RecordingExt), nil
}

// First 8 characters of an id, enough to tell sessions apart in file names and logs
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

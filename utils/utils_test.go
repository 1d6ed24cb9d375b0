package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetRecordingPath(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "output")
	start := time.Date(2024, 3, 9, 21, 5, 0, 0, time.Local)

	path, err := GetRecordingPath(dir, start, "0f8fad5b-d9cb-469f-a165-70867728950e")
	if err != nil {
		t.Fatal(err)
	}

	want := filepath.Join(dir, "2024-03-09_21-05_0f8fad5b.avi")
	if path != want {
		t.Errorf("got %s, want %s", path, want)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("directory %s was not created", dir)
	}
}

func TestGetRecordingPathNoDir(t *testing.T) {
	if _, err := GetRecordingPath("", time.Now(), ""); err == nil {
		t.Error("expected an error without a directory")
	}
}

func TestShortID(t *testing.T) {
	if got := ShortID("abc"); got != "abc" {
		t.Errorf("got %q", got)
	}
	if got := ShortID("0123456789"); got != "01234567" {
		t.Errorf("got %q", got)
	}
}

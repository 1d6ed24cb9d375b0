package assets

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestPickNeverReturnsCurrent(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.jpg", "b.png", "c.jpeg")

	current := filepath.Join(dir, "b.png")
	for i := 0; i < 200; i++ {
		got, ok := Picker{}.Pick(dir, current)
		if !ok {
			t.Fatal("expected a candidate")
		}
		if got == current {
			t.Fatalf("picked the current asset %s", got)
		}
		if filepath.Dir(got) != dir {
			t.Fatalf("picked %s outside %s", got, dir)
		}
	}
}

func TestPickComparesByBaseName(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.jpg", "b.jpg")

	for i := 0; i < 50; i++ {
		got, _ := Picker{}.Pick(dir, "a.jpg")
		if filepath.Base(got) != "b.jpg" {
			t.Fatalf("got %s, want b.jpg", got)
		}
	}
}

func TestPickSingleCandidate(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "only.png")

	got, ok := Picker{}.Pick(dir, filepath.Join(dir, "only.png"))
	if !ok || filepath.Base(got) != "only.png" {
		t.Errorf("got %q %v, want only.png true", got, ok)
	}
}

func TestPickNoCandidate(t *testing.T) {
	var tests = []struct {
		name string
		dir  string
	}{
		{"empty dir", t.TempDir()},
		{"missing dir", filepath.Join(t.TempDir(), "nope")},
		{"no dir", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Picker{}.Pick(tt.dir, "x.png")
			if ok || got != "" {
				t.Errorf("got %q %v, want no candidate", got, ok)
			}
		})
	}
}

func TestListSkipsNonImages(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "b.JPG", "a.png", "notes.txt", ".hidden.png")
	if err := os.Mkdir(filepath.Join(dir, "sub.png"), 0o755); err != nil {
		t.Fatal(err)
	}

	got := List(dir)
	want := []string{filepath.Join(dir, "a.png"), filepath.Join(dir, "b.JPG")}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
		}
	}
}

func TestPickUsesRandomSource(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.png", "b.png", "c.png")

	p := Picker{Intn: func(n int) int { return n - 1 }}
	got, _ := p.Pick(dir, "")
	if filepath.Base(got) != "c.png" {
		t.Errorf("got %s, want c.png", got)
	}
}

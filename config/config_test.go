package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseDefaults(t *testing.T) {
	snap, err := Parse(nil)
	if err != nil {
		t.Fatal(err)
	}

	if snap.OutputWidth != 1500 || snap.OutputHeight != 780 {
		t.Errorf("output = %dx%d, want 1500x780", snap.OutputWidth, snap.OutputHeight)
	}
	if snap.ImgLoadSize != 256 {
		t.Errorf("ImgLoadSize = %d, want 256", snap.ImgLoadSize)
	}
	if snap.Face.BPM != 60 || snap.Face.Beats != 4 {
		t.Errorf("face tempo = %v/%v, want 60/4", snap.Face.BPM, snap.Face.Beats)
	}
	if !snap.Face.Randomize || !snap.Style.Randomize {
		t.Error("randomize should default to true")
	}
	if snap.Psych != (PsychParams{Amplitude: 20, Wavelength: 150, FrameCountDiv: 3}) {
		t.Errorf("Psych = %+v, want 20/150/3", snap.Psych)
	}
	if snap.SaveOutputPath != "output/" {
		t.Errorf("SaveOutputPath = %q, want output/", snap.SaveOutputPath)
	}
	if snap.UseGPU() {
		t.Error("no gpu_ids should select the CPU")
	}
}

func TestParseJSONList(t *testing.T) {
	body := `[{"model_name": "faceswap+psych", "face_images_dir": "faces", "bpm": 120,
		"beats": 8, "output_width": 640, "output_height": 480, "gpu_ids": [0],
		"save_output_bool": true, "save_output_path": "rec/"}]`

	snap, err := Parse([]byte(body))
	if err != nil {
		t.Fatal(err)
	}

	if snap.ModelName != "faceswap+psych" {
		t.Errorf("ModelName = %q", snap.ModelName)
	}
	if snap.Face.ImagesDir != "faces" || snap.Face.BPM != 120 || snap.Face.Beats != 8 {
		t.Errorf("Face = %+v", snap.Face)
	}
	if snap.Style.BPM != 120 || snap.Style.Beats != 8 {
		t.Errorf("Style tempo should follow the top-level tempo, got %+v", snap.Style)
	}
	if snap.OutputWidth != 640 || snap.OutputHeight != 480 {
		t.Errorf("output = %dx%d", snap.OutputWidth, snap.OutputHeight)
	}
	if !snap.UseGPU() {
		t.Error("gpu_ids [0] should select a GPU")
	}
	if !snap.SaveOutput || snap.SaveOutputPath != "rec/" {
		t.Errorf("recording = %v %q", snap.SaveOutput, snap.SaveOutputPath)
	}
}

func TestParsePerStageTempo(t *testing.T) {
	body := `
bpm: 100
beats: 4
face_bpm: 140
style_beats: 0
randomize_face: false
stages: [psych, faceswap]
`
	snap, err := Parse([]byte(body))
	if err != nil {
		t.Fatal(err)
	}

	if snap.Face.BPM != 140 || snap.Face.Beats != 4 {
		t.Errorf("Face tempo = %v/%v, want 140/4", snap.Face.BPM, snap.Face.Beats)
	}
	if snap.Style.BPM != 100 || snap.Style.Beats != 0 {
		t.Errorf("Style tempo = %v/%v, want 100/0", snap.Style.BPM, snap.Style.Beats)
	}
	if snap.Face.Randomize {
		t.Error("randomize_face: false was ignored")
	}
	tokens := snap.StageTokens()
	if len(tokens) != 2 || tokens[0] != "psych" || tokens[1] != "faceswap" {
		t.Errorf("StageTokens = %v", tokens)
	}
}

func TestParseInvalid(t *testing.T) {
	var tests = []struct {
		name string
		body string
	}{
		{"zero width", "output_width: 0"},
		{"negative beats", "beats: -1"},
		{"nan beats", "beats: .nan"},
		{"infinite face tempo", "face_bpm: .inf"},
		{"nan style tempo", "style_bpm: .nan"},
		{"zero wavelength", "psych_wavelength: 0"},
		{"zero divisor", "psych_frame_count_div: 0"},
		{"strength above one", "style_strength: 1.5"},
		{"recording without path", "save_output_bool: true\nsave_output_path: ''"},
		{"empty list", "[]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.body))
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("got %v, want ErrInvalid", err)
			}
		})
	}
}

func TestParseMalformed(t *testing.T) {
	if _, err := Parse([]byte("output_width: [1, 2")); err == nil {
		t.Error("expected a parse error")
	}
	if _, err := Parse([]byte("output_width: wide")); err == nil {
		t.Error("expected a type error")
	}
}

func TestLoadRecordsSource(t *testing.T) {
	path := writeConfig(t, "model_name: psych\n")

	snap, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Source != path {
		t.Errorf("Source = %q, want %q", snap.Source, path)
	}
	if snap.ModTime.IsZero() {
		t.Error("ModTime not recorded")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestDiff(t *testing.T) {
	a := Default()
	b := Default()
	b.ModelName = "psych"
	b.Face.BPM = 90

	changes := Diff(a, b)
	if len(changes) != 2 {
		t.Fatalf("got %v, want 2 changes", changes)
	}
	if changes[0] != "model_name:  → psych" {
		t.Errorf("got %q", changes[0])
	}
	if len(Diff(a, Default())) != 0 {
		t.Error("identical snapshots should not differ")
	}

	c := Default()
	c.VirtualCamDevice = "/dev/video11"
	c.VirtualCamFPS = 25
	c.Face.CascadePath = "face.xml"
	changes = Diff(a, c)
	want := []string{"face", "virtual_cam_device: /dev/video10 → /dev/video11", "virtual_cam_fps: 30 → 25"}
	if len(changes) != len(want) {
		t.Fatalf("got %v, want %d changes", changes, len(want))
	}
	if !strings.HasPrefix(changes[0], want[0]+":") || changes[1] != want[1] || changes[2] != want[2] {
		t.Errorf("got %v", changes)
	}
}

func TestParseFaceCascade(t *testing.T) {
	snap, err := Parse([]byte("face_cascade_path: faces.xml\ndetect_cascade_path: cats.xml\n"))
	if err != nil {
		t.Fatal(err)
	}
	if snap.Face.CascadePath != "faces.xml" || snap.Detect.CascadePath != "cats.xml" {
		t.Errorf("cascades = %q, %q", snap.Face.CascadePath, snap.Detect.CascadePath)
	}
	if def := Default(); def.Face.CascadePath != DefaultCascadePath {
		t.Errorf("default face cascade = %q", def.Face.CascadePath)
	}
}

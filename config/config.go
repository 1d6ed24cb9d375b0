// Package config loads the effect configuration document and shares it with the frame loop.
//
// A Snapshot is built once per (re)load and never mutated afterwards. The frame loop reads it
// through a Slot, the reload goroutine replaces it wholesale.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("invalid configuration")

const (
	DefaultImgLoadSize    = 256
	DefaultOutputWidth    = 1500
	DefaultOutputHeight   = 780
	DefaultSaveOutputPath = "output/"
	DefaultBPM            = 60
	DefaultBeats          = 4
	DefaultAmplitude      = 20
	DefaultWavelength     = 150
	DefaultFrameCountDiv  = 3
	DefaultStyleStrength  = 1.0
	DefaultVirtualCamFPS  = 30
	DefaultVirtualCamDev  = "/dev/video10"
	// Installed by OpenCV, which gocv builds into /usr/local.
	DefaultCascadePath    = "/usr/local/share/opencv4/haarcascades/haarcascade_frontalface_default.xml"
)

// AssetParams configures a stage that works from an image asset (face or style).
type AssetParams struct {
	ImagePath string  // explicit asset, used until a rotation picks another one
	ImagesDir string  // candidates for rotation
	Randomize bool    // rotate on the beat
	BPM       float64 // tempo, <= 0 disables rotation
	Beats     float64 // bar length, 0 rotates every frame
	Strength  float64 // blend of the effect over the input, 0..1 (style only)

	CascadePath string // face detector (face only)
}

// PsychParams configures the psychedelic distortion.
type PsychParams struct {
	Amplitude     float64 // pixels of displacement
	Wavelength    float64 // pixels per wave period
	FrameCountDiv int     // frames per phase step
}

// DetectParams configures the detection overlay.
type DetectParams struct {
	CascadePath string
	Label       string
}

// Snapshot is one complete configuration. Treat it as read-only once published.
type Snapshot struct {
	Generation uint64 // increases by one for every publication

	ModelName string   // legacy stage selector, e.g. "faceswap+psych"
	Stages    []string // explicit stage list, overrides ModelName when set

	Face   AssetParams
	Style  AssetParams
	Psych  PsychParams
	Detect DetectParams

	ImgLoadSize  int
	OutputWidth  int
	OutputHeight int

	SaveOutput     bool
	SaveOutputPath string

	UseVirtualCam    bool
	VirtualCamDevice string
	VirtualCamFPS    int

	GPUIDs []int

	Source  string    // file the snapshot was read from
	ModTime time.Time // modification time of Source at load
}

// UseGPU reports whether a compute device other than the CPU was selected.
func (s *Snapshot) UseGPU() bool {
	return len(s.GPUIDs) > 0
}

// StageTokens returns the tokens that select stages for this snapshot.
func (s *Snapshot) StageTokens() []string {
	if len(s.Stages) > 0 {
		return append([]string(nil), s.Stages...)
	}
	return []string{s.ModelName}
}

// document mirrors the on-disk keys.
type document struct {
	ModelName string   `yaml:"model_name"`
	Stages    []string `yaml:"stages"`

	FaceImagePath string   `yaml:"face_image_path"`
	FaceImagesDir string   `yaml:"face_images_dir"`
	RandomizeFace bool     `yaml:"randomize_face"`
	FaceBPM       *float64 `yaml:"face_bpm"`
	FaceBeats     *float64 `yaml:"face_beats"`
	FaceCascade   string   `yaml:"face_cascade_path"`

	StyleImagePath string   `yaml:"style_image_path"`
	StyleImagesDir string   `yaml:"style_images_dir"`
	RandomizeStyle bool     `yaml:"randomize_style"`
	StyleBPM       *float64 `yaml:"style_bpm"`
	StyleBeats     *float64 `yaml:"style_beats"`
	StyleStrength  float64  `yaml:"style_strength"`

	BPM   float64 `yaml:"bpm"`
	Beats float64 `yaml:"beats"`

	PsychAmplitude     float64 `yaml:"psych_amplitude"`
	PsychWavelength    float64 `yaml:"psych_wavelength"`
	PsychFrameCountDiv int     `yaml:"psych_frame_count_div"`

	DetectCascadePath string `yaml:"detect_cascade_path"`
	DetectLabel       string `yaml:"detect_label"`

	ImgLoadSize  int `yaml:"img_load_size"`
	OutputWidth  int `yaml:"output_width"`
	OutputHeight int `yaml:"output_height"`

	SaveOutputBool bool   `yaml:"save_output_bool"`
	SaveOutputPath string `yaml:"save_output_path"`

	UseVirtualCam    bool   `yaml:"use_virtual_cam"`
	VirtualCamDevice string `yaml:"virtual_cam_device"`
	VirtualCamFPS    int    `yaml:"virtual_cam_fps"`

	GPUIDs []int `yaml:"gpu_ids"`
}

func defaultDocument() document {
	return document{
		RandomizeFace:      true,
		RandomizeStyle:     true,
		StyleStrength:      DefaultStyleStrength,
		BPM:                DefaultBPM,
		Beats:              DefaultBeats,
		PsychAmplitude:     DefaultAmplitude,
		PsychWavelength:    DefaultWavelength,
		PsychFrameCountDiv: DefaultFrameCountDiv,
		FaceCascade:        DefaultCascadePath,
		DetectCascadePath:  DefaultCascadePath,
		DetectLabel:        "face",
		ImgLoadSize:        DefaultImgLoadSize,
		OutputWidth:        DefaultOutputWidth,
		OutputHeight:       DefaultOutputHeight,
		SaveOutputPath:     DefaultSaveOutputPath,
		VirtualCamDevice:   DefaultVirtualCamDev,
		VirtualCamFPS:      DefaultVirtualCamFPS,
	}
}

// Default returns the snapshot used when a document sets nothing.
func Default() *Snapshot {
	return defaultDocument().snapshot()
}

func (d document) snapshot() *Snapshot {
	face := AssetParams{
		ImagePath: d.FaceImagePath,
		ImagesDir: d.FaceImagesDir,
		Randomize: d.RandomizeFace,
		BPM:       orDefault(d.FaceBPM, d.BPM),
		Beats:     orDefault(d.FaceBeats, d.Beats),
		Strength:  1,

		CascadePath: d.FaceCascade,
	}
	style := AssetParams{
		ImagePath: d.StyleImagePath,
		ImagesDir: d.StyleImagesDir,
		Randomize: d.RandomizeStyle,
		BPM:       orDefault(d.StyleBPM, d.BPM),
		Beats:     orDefault(d.StyleBeats, d.Beats),
		Strength:  d.StyleStrength,
	}

	return &Snapshot{
		ModelName: d.ModelName,
		Stages:    append([]string(nil), d.Stages...),
		Face:      face,
		Style:     style,
		Psych: PsychParams{
			Amplitude:     d.PsychAmplitude,
			Wavelength:    d.PsychWavelength,
			FrameCountDiv: d.PsychFrameCountDiv,
		},
		Detect: DetectParams{
			CascadePath: d.DetectCascadePath,
			Label:       d.DetectLabel,
		},
		ImgLoadSize:      d.ImgLoadSize,
		OutputWidth:      d.OutputWidth,
		OutputHeight:     d.OutputHeight,
		SaveOutput:       d.SaveOutputBool,
		SaveOutputPath:   d.SaveOutputPath,
		UseVirtualCam:    d.UseVirtualCam,
		VirtualCamDevice: d.VirtualCamDevice,
		VirtualCamFPS:    d.VirtualCamFPS,
		GPUIDs:           append([]int(nil), d.GPUIDs...),
	}
}

func orDefault(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

// Load reads, parses and validates the configuration document at path.
func Load(path string) (*Snapshot, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	snap, err := Parse(data)
	if err != nil {
		return nil, err
	}
	snap.Source = path
	snap.ModTime = info.ModTime()
	return snap, nil
}

// Parse decodes a YAML (or JSON) document. A top-level list uses its first element.
func Parse(data []byte) (*Snapshot, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	node := &root
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	if node.Kind == yaml.SequenceNode {
		if len(node.Content) == 0 {
			return nil, fmt.Errorf("%w: empty config list", ErrInvalid)
		}
		node = node.Content[0]
	}

	doc := defaultDocument()
	if node.Kind != 0 {
		if err := node.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	snap := doc.snapshot()
	if err := Validate(snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return snap, nil
}

// Validate checks the fields the frame loop relies on.
func Validate(s *Snapshot) error {
	if s.OutputWidth <= 0 || s.OutputHeight <= 0 {
		return fmt.Errorf("output size must be positive, got %dx%d", s.OutputWidth, s.OutputHeight)
	}
	if s.ImgLoadSize <= 0 {
		return fmt.Errorf("img_load_size must be positive, got %d", s.ImgLoadSize)
	}
	for _, v := range []float64{s.Face.BPM, s.Face.Beats, s.Style.BPM, s.Style.Beats} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("bpm and beats must be finite, got %v", v)
		}
	}
	if s.Face.Beats < 0 || s.Style.Beats < 0 {
		return errors.New("beats must not be negative")
	}
	if s.Style.Strength < 0 || s.Style.Strength > 1 {
		return fmt.Errorf("style_strength must be within 0..1, got %v", s.Style.Strength)
	}
	if s.Psych.Wavelength <= 0 {
		return fmt.Errorf("psych_wavelength must be positive, got %v", s.Psych.Wavelength)
	}
	if s.Psych.FrameCountDiv <= 0 {
		return fmt.Errorf("psych_frame_count_div must be positive, got %d", s.Psych.FrameCountDiv)
	}
	if s.SaveOutput && s.SaveOutputPath == "" {
		return errors.New("save_output_path is required when save_output_bool is set")
	}
	if s.UseVirtualCam && s.VirtualCamFPS <= 0 {
		return fmt.Errorf("virtual_cam_fps must be positive, got %d", s.VirtualCamFPS)
	}
	return nil
}

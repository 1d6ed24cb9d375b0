// Package pipeline runs the frame loop: capture, select stages, transform, resize, dispatch.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/DaniruKun/visuai/assets"
	"github.com/DaniruKun/visuai/beat"
	"github.com/DaniruKun/visuai/config"
	"github.com/DaniruKun/visuai/imgproc"
	"github.com/DaniruKun/visuai/sink"
	"github.com/DaniruKun/visuai/stage"
)

var (
	ErrCaptureFailed     = errors.New("camera returned no frame")
	ErrCameraUnavailable = errors.New("no camera detected")
)

// Phase is the lifecycle state of an Orchestrator.
type Phase int

const (
	Init Phase = iota
	Running
	ShuttingDown
	Terminated
)

func (p Phase) String() string {
	switch p {
	case Init:
		return "init"
	case Running:
		return "running"
	case ShuttingDown:
		return "shutting down"
	case Terminated:
		return "terminated"
	}
	return "unknown"
}

// Orchestrator owns the camera, the sinks and every stage's cross-frame state.
// Only Run (or Step) may touch that state; configuration arrives through Slot.
type Orchestrator struct {
	Camera   Camera
	Slot     *config.Slot
	Registry *stage.Registry
	Rotator  assets.Rotator

	Preview    sink.Preview
	Recorder   sink.Sink // nil when recording was not set up
	VirtualCam sink.Sink // nil when no virtual camera was set up

	Log logrus.FieldLogger
	Now func() time.Time

	phase  Phase
	tracks map[stage.Kind]*track
	stats  Stats

	selectedGen uint64
	selected    stage.Set
}

// track is the loop's memory for one stage.
type track struct {
	state      stage.State
	clock      beat.Clock
	asset      string // asset handed to the stage
	configured string // asset path of the last snapshot seen
	failed     string // asset that could not be loaded, not retried while a reference exists
	lastErr    string
}

// Stats counts what happened since the loop started.
type Stats struct {
	Frames        uint64
	Rotations     uint64
	StageFailures map[stage.Kind]uint64
	SinkFailures  map[string]uint64
}

func (o *Orchestrator) Phase() Phase { return o.phase }

// Stats returns a copy of the counters.
func (o *Orchestrator) Stats() Stats {
	s := o.stats
	s.StageFailures = make(map[stage.Kind]uint64, len(o.stats.StageFailures))
	for k, v := range o.stats.StageFailures {
		s.StageFailures[k] = v
	}
	s.SinkFailures = make(map[string]uint64, len(o.stats.SinkFailures))
	for k, v := range o.stats.SinkFailures {
		s.SinkFailures[k] = v
	}
	return s
}

// StageState returns the state carried for stage k.
func (o *Orchestrator) StageState(k stage.Kind) stage.State {
	if t, ok := o.tracks[k]; ok {
		return t.state
	}
	return stage.State{}
}

// Asset returns the asset stage k is currently using.
func (o *Orchestrator) Asset(k stage.Kind) string {
	if t, ok := o.tracks[k]; ok {
		return t.asset
	}
	return ""
}

func (o *Orchestrator) defaults() {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Log == nil {
		o.Log = logrus.StandardLogger()
	}
	if o.Rotator == nil {
		o.Rotator = assets.Picker{}
	}
}

func (o *Orchestrator) start() {
	if o.phase != Init {
		return
	}
	o.defaults()

	now := o.Now()
	o.tracks = make(map[stage.Kind]*track, len(stage.Order))
	for _, k := range stage.Order {
		o.tracks[k] = &track{clock: beat.NewClock(now)}
	}
	o.stats = Stats{
		StageFailures: make(map[stage.Kind]uint64),
		SinkFailures:  make(map[string]uint64),
	}
	o.phase = Running
}

// Run loops until the user quits, ctx is cancelled or the camera fails, then releases the camera
// and the sinks. Only a capture failure is returned as an error.
func (o *Orchestrator) Run(ctx context.Context) (err error) {
	o.start()
	defer func() {
		if cerr := o.Shutdown(); cerr != nil {
			o.Log.Warnf("cleanup finished with errors: %v", cerr)
		}
	}()

	o.Log.Info("frame loop started")
	for {
		select {
		case <-ctx.Done():
			o.Log.Info("frame loop cancelled")
			return nil
		default:
		}

		quit, err := o.Step()
		if err != nil {
			o.Log.Errorf("frame loop stopped: %v", err)
			return err
		}
		if quit {
			o.Log.Info("quit requested")
			return nil
		}
	}
}

// Step runs one iteration: CAPTURE, SELECT, TRANSFORM, COMPOSE, DISPATCH.
// It reports whether the user asked to quit.
func (o *Orchestrator) Step() (bool, error) {
	o.start()

	frame := gocv.NewMat()
	defer frame.Close()
	if ok := o.Camera.Read(&frame); !ok || frame.Empty() {
		return false, fmt.Errorf("%w after %d frames", ErrCaptureFailed, o.stats.Frames)
	}

	snap := o.Slot.Latest()
	now := o.Now()

	composed := o.transform(frame, snap, now)
	out := imgproc.Resize(composed, snap.OutputWidth, snap.OutputHeight)
	if composed.Ptr() != frame.Ptr() {
		composed.Close()
	}
	defer out.Close()

	o.dispatch(out, snap)
	o.stats.Frames++

	return o.Preview.Quit(), nil
}

// selectStages resolves the enabled stages once per snapshot.
func (o *Orchestrator) selectStages(snap *config.Snapshot) stage.Set {
	if o.selectedGen != 0 && snap.Generation == o.selectedGen {
		return o.selected
	}
	set, unknown := stage.Parse(snap.StageTokens())
	if len(unknown) > 0 {
		o.Log.Warnf("ignoring unknown stages %v", unknown)
	}
	if set != o.selected || o.selectedGen == 0 {
		o.Log.Infof("active stages: %s", set)
	}
	o.selectedGen = snap.Generation
	o.selected = set
	return set
}

// transform runs the enabled stages in composition order. The returned Mat is frame itself
// when no stage produced output.
func (o *Orchestrator) transform(frame gocv.Mat, snap *config.Snapshot, now time.Time) gocv.Mat {
	current := frame
	for _, k := range o.selectStages(snap).Kinds() {
		st, ok := o.Registry.Get(k)
		if !ok {
			continue
		}
		t := o.tracks[k]
		params, run := o.prepare(k, t, snap, now)
		if !run {
			continue
		}

		res := stage.SafeApply(st, current, params, t.state, o.report)
		if res.Err != nil {
			if params.AssetPath != "" && params.AssetPath != t.state.AssetPath {
				t.failed = params.AssetPath
			}
			continue
		}
		t.state = stage.Carry(t.state, res.State)
		t.lastErr = ""
		if current.Ptr() != frame.Ptr() {
			current.Close()
		}
		current = res.Frame
	}
	return current
}

// prepare builds the stage parameters from the snapshot and, for asset stages, runs the beat
// check and the rotation. It reports false when the stage has nothing to work with yet.
func (o *Orchestrator) prepare(k stage.Kind, t *track, snap *config.Snapshot, now time.Time) (stage.Params, bool) {
	p := stage.Params{
		Amplitude:     snap.Psych.Amplitude,
		Wavelength:    snap.Psych.Wavelength,
		FrameCountDiv: snap.Psych.FrameCountDiv,
		CascadePath:   snap.Detect.CascadePath,
		Label:         snap.Detect.Label,
		ImgLoadSize:   snap.ImgLoadSize,
	}

	var ap config.AssetParams
	switch k {
	case stage.FaceSwap:
		ap = snap.Face
		p.CascadePath = ap.CascadePath
	case stage.StyleTransfer:
		ap = snap.Style
	default:
		return p, true
	}
	p.Strength = ap.Strength

	if !(ap.ImagePath != "" || t.state.Ref != nil || (ap.Randomize && ap.ImagesDir != "")) {
		return p, false
	}

	// an edited asset path takes effect at once
	if ap.ImagePath != t.configured {
		t.configured = ap.ImagePath
		t.failed = ""
		if ap.ImagePath != "" {
			t.asset = ap.ImagePath
		}
	}

	if t.clock.Advance(now, ap.BPM, ap.Beats) {
		o.rotate(k, t, ap)
	}

	if t.asset == "" && t.state.Ref == nil {
		return p, false
	}
	p.AssetPath = t.asset
	if t.asset == t.failed && t.state.Ref != nil {
		// keep the last asset that loaded
		p.AssetPath = ""
	}
	return p, true
}

func (o *Orchestrator) rotate(k stage.Kind, t *track, ap config.AssetParams) {
	if !ap.Randomize || ap.ImagesDir == "" {
		if ap.ImagePath != "" {
			t.asset = ap.ImagePath
		}
		return
	}

	current := t.asset
	if current == "" {
		current = ap.ImagePath
	}
	next, ok := o.Rotator.Pick(ap.ImagesDir, current)
	if !ok {
		o.Log.Debugf("%s: no asset to rotate to in %s, keeping %q", k, ap.ImagesDir, current)
		return
	}
	t.asset = next
	t.failed = ""
	o.stats.Rotations++
	o.Log.WithField("stage", k.String()).Debugf("rotated asset to %s", next)
}

// report logs a stage failure; repeated identical failures are logged at debug level.
func (o *Orchestrator) report(k stage.Kind, err error) {
	o.stats.StageFailures[k]++
	t := o.tracks[k]
	log := o.Log.WithField("stage", k.String())
	if t != nil && t.lastErr == err.Error() {
		log.Debugf("stage failed again: %v", err)
		return
	}
	if t != nil {
		t.lastErr = err.Error()
	}
	log.Warnf("stage failed, passing frame through: %v", err)
}

// dispatch hands the final frame to every enabled sink. A sink failure is logged and counted.
func (o *Orchestrator) dispatch(frame gocv.Mat, snap *config.Snapshot) {
	o.send(o.Preview, frame)
	if o.VirtualCam != nil && snap.UseVirtualCam {
		o.send(o.VirtualCam, frame)
	}
	if o.Recorder != nil && snap.SaveOutput {
		o.send(o.Recorder, frame)
	}
}

func (o *Orchestrator) send(s sink.Sink, frame gocv.Mat) {
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return s.Send(frame)
	}()
	if err == nil {
		return
	}
	o.stats.SinkFailures[s.Name()]++
	if o.stats.SinkFailures[s.Name()] == 1 || o.stats.SinkFailures[s.Name()]%100 == 0 {
		o.Log.WithField("sink", s.Name()).Warnf("send failed (%d so far): %v", o.stats.SinkFailures[s.Name()], err)
	}
}

// Shutdown releases the camera, the recording, the virtual camera, the preview window and the
// stage models. Every step runs even when an earlier one fails or panics.
func (o *Orchestrator) Shutdown() error {
	if o.phase == Terminated {
		return nil
	}
	o.defaults()
	o.phase = ShuttingDown

	var errs []error
	release := func(name string, closeFn func() error) {
		defer func() {
			if r := recover(); r != nil {
				errs = append(errs, fmt.Errorf("release %s: panic: %v", name, r))
			}
		}()
		if err := closeFn(); err != nil {
			errs = append(errs, fmt.Errorf("release %s: %w", name, err))
		}
	}

	if o.Camera != nil {
		release("camera", o.Camera.Close)
	}
	if o.Recorder != nil {
		release("recording", o.Recorder.Close)
	}
	if o.VirtualCam != nil {
		release("virtual camera", o.VirtualCam.Close)
	}
	if o.Preview != nil {
		release("preview", o.Preview.Close)
	}
	for _, t := range o.tracks {
		if t.state.Ref != nil {
			release("stage state", t.state.Ref.Close)
			t.state.Ref = nil
		}
	}
	if o.Registry != nil {
		release("stages", o.Registry.Close)
	}

	o.phase = Terminated
	o.Log.Infof("frame loop terminated after %d frames", o.stats.Frames)
	return errors.Join(errs...)
}

// Package stage holds the frame transforms and the contract the frame loop uses to call them.
//
// A stage maps (frame, params, state) to (frame', state'). State is the only memory a stage
// keeps between frames; the frame loop owns it and threads it through. A stage never sees the
// configuration snapshot or the output sinks.
package stage

import (
	"errors"
	"fmt"
	"io"
	"runtime/debug"

	"gocv.io/x/gocv"
)

var (
	ErrNoAsset          = errors.New("asset could not be loaded")
	ErrNoFace           = errors.New("no face found in asset")
	ErrModelUnavailable = errors.New("model could not be loaded")
	ErrEmptyFrame       = errors.New("empty frame")
)

// Params are the per-frame inputs of a stage, resolved by the frame loop from the current snapshot.
type Params struct {
	AssetPath string  // face or style image
	Strength  float64 // blend of the effect over the input, 0..1

	Amplitude     float64
	Wavelength    float64
	FrameCountDiv int

	CascadePath string
	Label       string

	ImgLoadSize int
}

// Reference is a cached, derived form of an asset (a cropped face, style statistics).
type Reference interface {
	Close() error
}

// State is the memory a stage carries from one frame to the next.
type State struct {
	AssetPath string    // asset Ref was derived from
	Ref       Reference // nil until a stage has built one
	Frames    uint64    // frames this stage has transformed
}

// Carry returns next and releases what prev held that next no longer references.
func Carry(prev, next State) State {
	if prev.Ref != nil && prev.Ref != next.Ref {
		prev.Ref.Close()
	}
	return next
}

// Stage is one effect family. Apply must not modify frame; on success it returns a new Mat owned
// by the caller.
type Stage interface {
	Kind() Kind
	Apply(frame gocv.Mat, p Params, s State) (gocv.Mat, State, error)
}

// Reporter receives stage failures.
type Reporter func(k Kind, err error)

// Result is the outcome of one stage invocation.
type Result struct {
	Frame gocv.Mat // the stage output, or the input frame itself when Err is set
	State State    // the new state, or the previous state when Err is set
	Err   error
}

// Fresh reports whether Frame is a new Mat the caller must close.
func (r Result) Fresh() bool { return r.Err == nil }

// PanicError wraps a panic raised inside a stage.
type PanicError struct {
	Kind  Kind
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("stage %s panicked: %v", e.Kind, e.Value)
}

// SafeApply runs st and enforces the fallback policy: on error or panic the input frame and the
// previous state are returned unchanged and the failure is passed to report.
func SafeApply(st Stage, frame gocv.Mat, p Params, s State, report Reporter) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			err := &PanicError{Kind: st.Kind(), Value: r, Stack: debug.Stack()}
			res = Result{Frame: frame, State: s, Err: err}
			if report != nil {
				report(st.Kind(), err)
			}
		}
	}()

	if frame.Empty() {
		err := ErrEmptyFrame
		if report != nil {
			report(st.Kind(), err)
		}
		return Result{Frame: frame, State: s, Err: err}
	}

	out, next, err := st.Apply(frame, p, s)
	if err == nil && (out.Ptr() == nil || out.Empty()) {
		err = fmt.Errorf("stage %s returned %w", st.Kind(), ErrEmptyFrame)
	}
	if err != nil {
		if out.Ptr() != nil && out.Ptr() != frame.Ptr() {
			out.Close()
		}
		if next.Ref != nil && next.Ref != s.Ref {
			next.Ref.Close()
		}
		if report != nil {
			report(st.Kind(), err)
		}
		return Result{Frame: frame, State: s, Err: err}
	}

	if out.Ptr() == frame.Ptr() {
		out = frame.Clone()
	}
	return Result{Frame: out, State: next}
}

// Registry maps a stage kind to its implementation.
type Registry struct {
	stages map[Kind]Stage
}

func NewRegistry(stages ...Stage) *Registry {
	r := &Registry{stages: make(map[Kind]Stage)}
	for _, s := range stages {
		r.Register(s)
	}
	return r
}

// Register adds s, replacing any stage of the same kind.
func (r *Registry) Register(s Stage) {
	r.stages[s.Kind()] = s
}

func (r *Registry) Get(k Kind) (Stage, bool) {
	s, ok := r.stages[k]
	return s, ok
}

// Close releases the models held by the registered stages.
func (r *Registry) Close() error {
	var errs []error
	for _, s := range r.stages {
		if c, ok := s.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Defaults returns a registry with the built-in implementation of every stage.
func Defaults() *Registry {
	return NewRegistry(
		NewFaceSwapper(),
		NewCartoonizer(),
		NewStyleTransferer(),
		NewDetector(),
		NewPsychedelizer(),
	)
}

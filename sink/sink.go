// Package sink holds the consumers of the final frame: the preview window, the recording file
// and the virtual camera. Each one is independent; a failure in one never reaches the others.
package sink

import (
	"errors"

	"gocv.io/x/gocv"
)

var ErrClosed = errors.New("sink closed")

// Sink consumes one frame per loop iteration. Send must not keep or modify frame.
type Sink interface {
	Name() string
	Send(frame gocv.Mat) error
	Close() error
}

// Preview is the always-on window sink. It is also where the quit key comes from.
type Preview interface {
	Sink
	// Quit polls the keyboard and reports whether the user asked to stop.
	Quit() bool
}

const QuitKey = 'q'

// Window shows frames in an OpenCV HighGUI window.
type Window struct {
	window *gocv.Window
	closed bool
}

func NewWindow(title string) *Window {
	return &Window{window: gocv.NewWindow(title)}
}

func (w *Window) Name() string { return "preview" }

func (w *Window) Send(frame gocv.Mat) error {
	if w.closed {
		return ErrClosed
	}
	w.window.IMShow(frame)
	return nil
}

// Quit waits 1ms for a key, which also lets HighGUI repaint the window.
func (w *Window) Quit() bool {
	if w.closed {
		return true
	}
	key := w.window.WaitKey(1)
	return key >= 0 && key&0xFF == QuitKey
}

func (w *Window) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.window.Close()
}

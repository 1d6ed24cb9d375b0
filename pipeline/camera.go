package pipeline

import (
	"fmt"

	"gocv.io/x/gocv"
)

const DefaultFPS = 30

// Camera is the frame source. Read blocks until the next frame and reports false when the
// device produced none.
type Camera interface {
	Read(frame *gocv.Mat) bool
	FPS() float64
	Close() error
}

// Webcam is a local capture device.
type Webcam struct {
	capture *gocv.VideoCapture
}

// OpenCamera opens capture device `device`, 0 being the default camera.
func OpenCamera(device int) (*Webcam, error) {
	capture, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("%w: device %d: %v", ErrCameraUnavailable, device, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("%w: device %d", ErrCameraUnavailable, device)
	}
	return &Webcam{capture: capture}, nil
}

func (w *Webcam) Read(frame *gocv.Mat) bool {
	return w.capture.Read(frame)
}

// FPS is the frame rate reported by the driver, or DefaultFPS when it reports none.
func (w *Webcam) FPS() float64 {
	fps := w.capture.Get(gocv.VideoCaptureFPS)
	if fps <= 0 {
		return DefaultFPS
	}
	return fps
}

func (w *Webcam) Close() error {
	return w.capture.Close()
}

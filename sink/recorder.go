package sink

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/DaniruKun/visuai/imgproc"
)

const RecordingCodec = "XVID"

// Recorder writes frames to a video file at a fixed size; frames of another size are scaled.
type Recorder struct {
	Path   string
	width  int
	height int
	writer *gocv.VideoWriter
}

// OpenRecorder creates the file at path.
func OpenRecorder(path string, fps float64, width, height int) (*Recorder, error) {
	w, err := gocv.VideoWriterFile(path, RecordingCodec, fps, width, height, true)
	if err != nil {
		return nil, fmt.Errorf("failed to open recording %s: %w", path, err)
	}
	if !w.IsOpened() {
		w.Close()
		return nil, fmt.Errorf("failed to open recording %s: no %s encoder", path, RecordingCodec)
	}
	return &Recorder{Path: path, width: width, height: height, writer: w}, nil
}

func (r *Recorder) Name() string { return "recording" }

func (r *Recorder) Send(frame gocv.Mat) error {
	if r.writer == nil {
		return ErrClosed
	}
	if frame.Cols() == r.width && frame.Rows() == r.height {
		return r.writer.Write(frame)
	}
	scaled := imgproc.Resize(frame, r.width, r.height)
	defer scaled.Close()
	return r.writer.Write(scaled)
}

// Close flushes and releases the file.
func (r *Recorder) Close() error {
	if r.writer == nil {
		return nil
	}
	err := r.writer.Close()
	r.writer = nil
	return err
}

package sink

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"time"

	"gocv.io/x/gocv"

	"github.com/DaniruKun/visuai/imgproc"
)

// VirtualCam streams raw RGB frames to a virtual video device. It paces itself to its own
// frame rate, independent of the camera's.
type VirtualCam struct {
	width, height int
	adjust        imgproc.VirtualCamConfig
	out           io.WriteCloser
	wait          func() error
	pace          *pacer
}

// NewVirtualCam writes frames to out. wait, when set, is called after out is closed.
func NewVirtualCam(out io.WriteCloser, width, height, fps int, adjust imgproc.VirtualCamConfig, wait func() error) *VirtualCam {
	return &VirtualCam{
		width:  width,
		height: height,
		adjust: adjust,
		out:    out,
		wait:   wait,
		pace:   newPacer(time.Second / time.Duration(fps)),
	}
}

// OpenVirtualCam starts ffmpeg writing to a v4l2loopback device.
func OpenVirtualCam(ctx context.Context, device string, width, height, fps int) (*VirtualCam, error) {
	args := []string{
		"-loglevel", "error",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-r", strconv.Itoa(fps),
		"-i", "-",
		"-f", "v4l2",
		"-pix_fmt", "yuv420p",
		device,
	}
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open virtual camera pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg for %s: %w", device, err)
	}
	return NewVirtualCam(stdin, width, height, fps, imgproc.DefaultVirtualCamConfig(), cmd.Wait), nil
}

func (v *VirtualCam) Name() string { return "virtual camera" }

// Send brightens, converts and mirrors a copy of frame, writes it and then sleeps until the
// next frame slot of the device.
func (v *VirtualCam) Send(frame gocv.Mat) error {
	if v.out == nil {
		return ErrClosed
	}

	adjusted := imgproc.AdjustForVirtualCam(frame, v.adjust)
	defer adjusted.Close()
	data := adjusted.ToBytes()
	if adjusted.Cols() != v.width || adjusted.Rows() != v.height {
		scaled := imgproc.Resize(adjusted, v.width, v.height)
		data = scaled.ToBytes()
		scaled.Close()
	}

	if _, err := v.out.Write(data); err != nil {
		return fmt.Errorf("failed to write virtual camera frame: %w", err)
	}
	v.pace.wait()
	return nil
}

func (v *VirtualCam) Close() error {
	if v.out == nil {
		return nil
	}
	err := v.out.Close()
	v.out = nil
	if v.wait != nil {
		if werr := v.wait(); werr != nil && err == nil {
			err = werr
		}
	}
	return err
}

// pacer sleeps until the next multiple of period since the first frame.
type pacer struct {
	period time.Duration
	next   time.Time
	now    func() time.Time
	sleep  func(time.Duration)
}

func newPacer(period time.Duration) *pacer {
	return &pacer{period: period, now: time.Now, sleep: time.Sleep}
}

func (p *pacer) wait() {
	now := p.now()
	if p.next.IsZero() {
		p.next = now
	}
	p.next = p.next.Add(p.period)

	d := p.next.Sub(now)
	if d > 0 {
		p.sleep(d)
		return
	}
	// more than a frame behind: start over instead of bursting to catch up
	if -d > p.period {
		p.next = now
	}
}

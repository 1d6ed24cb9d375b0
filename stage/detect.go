package stage

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/DaniruKun/visuai/imgproc"
)

// Detector draws a labelled box around every object its cascade finds.
type Detector struct {
	cascades
	Thickness int
}

func NewDetector() *Detector {
	return &Detector{Thickness: 2}
}

func (*Detector) Kind() Kind { return Detect }

func (d *Detector) Apply(frame gocv.Mat, p Params, s State) (gocv.Mat, State, error) {
	cl, err := d.get(p.CascadePath)
	if err != nil {
		return gocv.Mat{}, s, err
	}

	found := detectFaces(cl, frame)
	out := frame.Clone()
	for i, rect := range found {
		c := imgproc.CycleColor(i, 6)
		gocv.Rectangle(&out, rect, c, d.Thickness)

		label := fmt.Sprintf("%s %d", p.Label, i+1)
		org := image.Point{X: rect.Min.X, Y: rect.Min.Y - 6}
		if org.Y < 12 {
			org.Y = rect.Max.Y + 14
		}
		gocv.PutText(&out, label, org, gocv.FontHersheyPlain, 1.2, c, d.Thickness)
	}

	next := s
	next.Frames++
	return out, next, nil
}

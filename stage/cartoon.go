package stage

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/DaniruKun/visuai/imgproc"
)

// Cartoonizer flattens colors with a bilateral filter and outlines them with adaptive edges.
// It works at ImgLoadSize and scales the result back to the frame size.
type Cartoonizer struct {
	Diameter   int
	SigmaColor float64
	SigmaSpace float64
	EdgeBlock  int
	EdgeC      float32
}

func NewCartoonizer() *Cartoonizer {
	return &Cartoonizer{Diameter: 9, SigmaColor: 75, SigmaSpace: 75, EdgeBlock: 9, EdgeC: 2}
}

func (*Cartoonizer) Kind() Kind { return Cartoon }

func (c *Cartoonizer) Apply(frame gocv.Mat, p Params, s State) (gocv.Mat, State, error) {
	small := imgproc.FitWithin(frame, p.ImgLoadSize)
	defer small.Close()

	smooth := gocv.NewMat()
	defer smooth.Close()
	gocv.BilateralFilter(small, &smooth, c.Diameter, c.SigmaColor, c.SigmaSpace)

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(small, &gray, gocv.ColorBGRToGray)
	gocv.MedianBlur(gray, &gray, 7)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.AdaptiveThreshold(gray, &edges, 255, gocv.AdaptiveThresholdMean, gocv.ThresholdBinary, c.EdgeBlock, c.EdgeC)
	gocv.CvtColor(edges, &edges, gocv.ColorGrayToBGR)

	toon := gocv.NewMat()
	defer toon.Close()
	gocv.BitwiseAnd(smooth, edges, &toon)

	out := gocv.NewMat()
	gocv.Resize(toon, &out, image.Point{X: frame.Cols(), Y: frame.Rows()}, 0, 0, gocv.InterpolationLinear)
	blend(frame, &out, strengthOr(p.Strength, 1))

	next := s
	next.Frames++
	return out, next, nil
}

func strengthOr(v, fallback float64) float64 {
	if v <= 0 {
		return fallback
	}
	return v
}

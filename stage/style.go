package stage

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/DaniruKun/visuai/imgproc"
)

// StyleTransferer recolors the frame with the color statistics of a style image, matching the
// per-channel mean and deviation in Lab space.
type StyleTransferer struct{}

func NewStyleTransferer() *StyleTransferer { return &StyleTransferer{} }

func (*StyleTransferer) Kind() Kind { return StyleTransfer }

// labStats are the per-channel Lab mean and standard deviation of an image.
type labStats struct {
	mean [3]float64
	std  [3]float64
}

func (*labStats) Close() error { return nil }

func (st *StyleTransferer) Apply(frame gocv.Mat, p Params, s State) (gocv.Mat, State, error) {
	next := s
	style, ok := s.Ref.(*labStats)
	if p.AssetPath != "" && (p.AssetPath != s.AssetPath || !ok) {
		loaded, err := loadStyle(p.AssetPath, p.ImgLoadSize)
		if err != nil {
			return gocv.Mat{}, s, err
		}
		style = loaded
		next.AssetPath = p.AssetPath
		next.Ref = loaded
	}
	if style == nil {
		return gocv.Mat{}, s, fmt.Errorf("%w: no style image configured", ErrNoAsset)
	}

	lab := gocv.NewMat()
	defer lab.Close()
	gocv.CvtColor(frame, &lab, gocv.ColorBGRToLab)
	lab.ConvertTo(&lab, gocv.MatTypeCV32FC3)

	target := statsOf(lab)

	channels := gocv.Split(lab)
	for i := range channels {
		scale := 1.0
		if target.std[i] > 1e-6 {
			scale = style.std[i] / target.std[i]
		}
		channels[i].SubtractFloat(float32(target.mean[i]))
		channels[i].MultiplyFloat(float32(scale))
		channels[i].AddFloat(float32(style.mean[i]))
	}
	gocv.Merge(channels, &lab)
	for i := range channels {
		channels[i].Close()
	}

	lab.ConvertTo(&lab, gocv.MatTypeCV8UC3)
	out := gocv.NewMat()
	gocv.CvtColor(lab, &out, gocv.ColorLabToBGR)
	blend(frame, &out, p.Strength)

	next.Frames++
	return out, next, nil
}

func loadStyle(path string, maxSide int) (*labStats, error) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	defer img.Close()
	if img.Empty() {
		return nil, fmt.Errorf("%w: %s", ErrNoAsset, path)
	}

	small := imgproc.FitWithin(img, maxSide)
	defer small.Close()

	lab := gocv.NewMat()
	defer lab.Close()
	gocv.CvtColor(small, &lab, gocv.ColorBGRToLab)
	lab.ConvertTo(&lab, gocv.MatTypeCV32FC3)

	stats := statsOf(lab)
	return &stats, nil
}

func statsOf(lab gocv.Mat) labStats {
	mean := gocv.NewMat()
	defer mean.Close()
	std := gocv.NewMat()
	defer std.Close()
	gocv.MeanStdDev(lab, &mean, &std)

	var out labStats
	for i := 0; i < 3; i++ {
		out.mean[i] = mean.GetDoubleAt(i, 0)
		out.std[i] = std.GetDoubleAt(i, 0)
	}
	return out
}

package imgproc

import (
	"bytes"
	"image"

	"gocv.io/x/gocv"
)

// Returns a new Mat of `width` x `height` from src
func Resize(src gocv.Mat, width, height int) gocv.Mat {
	dst := gocv.NewMat()
	if src.Cols() == width && src.Rows() == height {
		src.CopyTo(&dst)
		return dst
	}
	gocv.Resize(src, &dst, image.Point{X: width, Y: height}, 0, 0, gocv.InterpolationLinear)
	return dst
}

// Returns a new Mat scaled down so that its longest side is at most `maxSide`, keeping the aspect ratio
func FitWithin(src gocv.Mat, maxSide int) gocv.Mat {
	w, h := src.Cols(), src.Rows()
	longest := w
	if h > longest {
		longest = h
	}
	if maxSide <= 0 || longest <= maxSide {
		return src.Clone()
	}

	scale := float64(maxSide) / float64(longest)
	newW := maxInt(1, int(float64(w)*scale))
	newH := maxInt(1, int(float64(h)*scale))

	dst := gocv.NewMat()
	gocv.Resize(src, &dst, image.Point{X: newW, Y: newH}, 0, 0, gocv.InterpolationArea)
	return dst
}

// Returns a new Mat with `value` added to the brightness (HSV V channel) of src, saturating at 255
func Brighten(src gocv.Mat, value uint8) gocv.Mat {
	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(src, &hsv, gocv.ColorBGRToHSV)

	channels := gocv.Split(hsv)
	defer func() {
		for i := range channels {
			channels[i].Close()
		}
	}()
	channels[2].AddUChar(value)
	gocv.Merge(channels, &hsv)

	dst := gocv.NewMat()
	gocv.CvtColor(hsv, &dst, gocv.ColorHSVToBGR)
	return dst
}

// Returns a new Mat prepared for a virtual camera device according to cfg
func AdjustForVirtualCam(src gocv.Mat, cfg VirtualCamConfig) gocv.Mat {
	var out gocv.Mat
	if cfg.Brightness > 0 {
		out = Brighten(src, cfg.Brightness)
	} else {
		out = src.Clone()
	}

	if cfg.RGB {
		gocv.CvtColor(out, &out, gocv.ColorBGRToRGB)
	}
	if cfg.Mirror {
		gocv.Flip(out, &out, 1)
	}
	return out
}

// Reports whether two Mats have the same size, type and pixel bytes
func Equal(a, b gocv.Mat) bool {
	if a.Rows() != b.Rows() || a.Cols() != b.Cols() || a.Type() != b.Type() {
		return false
	}
	return bytes.Equal(a.ToBytes(), b.ToBytes())
}

// Finds the largest rectangle by area
func LargestRect(rects []image.Rectangle) (image.Rectangle, bool) {
	var best image.Rectangle
	found := false
	for _, r := range rects {
		if r.Empty() {
			continue
		}
		if !found || r.Dx()*r.Dy() > best.Dx()*best.Dy() {
			best = r
			found = true
		}
	}
	return best, found
}

// Grows r by `ratio` of its size on every side and clips it to bounds
func Pad(r image.Rectangle, ratio float64, bounds image.Rectangle) image.Rectangle {
	dx := int(float64(r.Dx()) * ratio)
	dy := int(float64(r.Dy()) * ratio)
	return image.Rect(r.Min.X-dx, r.Min.Y-dy, r.Max.X+dx, r.Max.Y+dy).Intersect(bounds)
}

// Bounds of a Mat as a rectangle anchored at the origin
func Bounds(mat gocv.Mat) image.Rectangle {
	return image.Rect(0, 0, mat.Cols(), mat.Rows())
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

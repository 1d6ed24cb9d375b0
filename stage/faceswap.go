package stage

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/DaniruKun/visuai/imgproc"
)

// FaceSwapper pastes the face found in the asset image over every face detected in the frame,
// through an elliptical mask.
type FaceSwapper struct {
	cascades
	Padding float64 // grow detected faces by this share of their size

	// Find locates faces in img. Nil uses the Haar cascade at Params.CascadePath.
	Find func(img gocv.Mat, cascadePath string) ([]image.Rectangle, error)
}

func NewFaceSwapper() *FaceSwapper {
	return &FaceSwapper{Padding: 0.1}
}

func (*FaceSwapper) Kind() Kind { return FaceSwap }

// faceRef is the face cropped from the current asset.
type faceRef struct {
	face gocv.Mat
}

func (r *faceRef) Close() error { return r.face.Close() }

func (fs *FaceSwapper) faces(img gocv.Mat, cascadePath string) ([]image.Rectangle, error) {
	if fs.Find != nil {
		return fs.Find(img, cascadePath)
	}
	cl, err := fs.get(cascadePath)
	if err != nil {
		return nil, err
	}
	return detectFaces(cl, img), nil
}

func (fs *FaceSwapper) Apply(frame gocv.Mat, p Params, s State) (gocv.Mat, State, error) {
	targets, err := fs.faces(frame, p.CascadePath)
	if err != nil {
		return gocv.Mat{}, s, err
	}

	next := s
	ref, ok := s.Ref.(*faceRef)
	if p.AssetPath != "" && (p.AssetPath != s.AssetPath || !ok) {
		loaded, err := fs.loadFace(p.AssetPath, p.CascadePath)
		if err != nil {
			return gocv.Mat{}, s, err
		}
		ref = loaded
		next.AssetPath = p.AssetPath
		next.Ref = loaded
	}
	if ref == nil {
		return gocv.Mat{}, s, fmt.Errorf("%w: no face image configured", ErrNoAsset)
	}

	out := frame.Clone()
	bounds := imgproc.Bounds(out)
	for _, rect := range targets {
		target := imgproc.Pad(rect, fs.Padding, bounds)
		if target.Dx() < 2 || target.Dy() < 2 {
			continue
		}
		pasteFace(&out, ref.face, target)
	}

	next.Frames++
	return out, next, nil
}

func (fs *FaceSwapper) loadFace(path, cascadePath string) (*faceRef, error) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	defer img.Close()
	if img.Empty() {
		return nil, fmt.Errorf("%w: %s", ErrNoAsset, path)
	}

	found, err := fs.faces(img, cascadePath)
	if err != nil {
		return nil, err
	}
	rect, ok := imgproc.LargestRect(found)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoFace, path)
	}
	rect = imgproc.Pad(rect, fs.Padding, imgproc.Bounds(img))

	region := img.Region(rect)
	defer region.Close()
	return &faceRef{face: region.Clone()}, nil
}

// pasteFace scales face to target and copies it into dst inside an inscribed ellipse.
func pasteFace(dst *gocv.Mat, face gocv.Mat, target image.Rectangle) {
	w, h := target.Dx(), target.Dy()

	scaled := gocv.NewMat()
	defer scaled.Close()
	gocv.Resize(face, &scaled, image.Point{X: w, Y: h}, 0, 0, gocv.InterpolationLinear)

	mask := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), h, w, gocv.MatTypeCV8U)
	defer mask.Close()
	gocv.Ellipse(&mask, image.Point{X: w / 2, Y: h / 2}, image.Point{X: w / 2, Y: h / 2}, 0, 0, 360, color.RGBA{255, 255, 255, 255}, -1)

	region := dst.Region(target)
	defer region.Close()
	scaled.CopyToWithMask(&region, mask)
}

package stage

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// cascades loads Haar cascade classifiers on first use and keeps them by path.
type cascades struct {
	loaded map[string]*gocv.CascadeClassifier
}

func (c *cascades) get(path string) (*gocv.CascadeClassifier, error) {
	if cl, ok := c.loaded[path]; ok {
		return cl, nil
	}
	if path == "" {
		return nil, fmt.Errorf("%w: no cascade configured", ErrModelUnavailable)
	}

	cl := gocv.NewCascadeClassifier()
	if !cl.Load(path) {
		cl.Close()
		return nil, fmt.Errorf("%w: %s", ErrModelUnavailable, path)
	}
	if c.loaded == nil {
		c.loaded = make(map[string]*gocv.CascadeClassifier)
	}
	c.loaded[path] = &cl
	return &cl, nil
}

func (c *cascades) Close() error {
	for path, cl := range c.loaded {
		cl.Close()
		delete(c.loaded, path)
	}
	return nil
}

// detectFaces runs the classifier on an equalized grayscale copy of img.
func detectFaces(cl *gocv.CascadeClassifier, img gocv.Mat) []image.Rectangle {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
	gocv.EqualizeHist(gray, &gray)
	return cl.DetectMultiScale(gray)
}

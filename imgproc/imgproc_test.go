package imgproc

import (
	"image"
	"testing"

	"gocv.io/x/gocv"
)

func solid(rows, cols int, b, g, r float64) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(b, g, r, 0), rows, cols, gocv.MatTypeCV8UC3)
}

func TestResize(t *testing.T) {
	src := solid(48, 64, 128, 128, 128)
	defer src.Close()

	var tests = []struct {
		w, h int
	}{
		{64, 48},
		{32, 24},
		{150, 78},
	}

	for _, tt := range tests {
		dst := Resize(src, tt.w, tt.h)
		if dst.Cols() != tt.w || dst.Rows() != tt.h {
			t.Errorf("got %dx%d, want %dx%d", dst.Cols(), dst.Rows(), tt.w, tt.h)
		}
		if v := dst.GetVecbAt(tt.h/2, tt.w/2); v[0] != 128 || v[1] != 128 || v[2] != 128 {
			t.Errorf("solid gray changed to %v", v)
		}
		dst.Close()
	}
}

func TestResizeSameSizeIsCopy(t *testing.T) {
	src := solid(10, 10, 1, 2, 3)
	defer src.Close()

	dst := Resize(src, 10, 10)
	defer dst.Close()
	dst.SetUCharAt(0, 0, 99)

	if src.GetUCharAt(0, 0) == 99 {
		t.Error("Resize returned a Mat sharing data with its input")
	}
}

func TestFitWithin(t *testing.T) {
	src := solid(300, 600, 0, 0, 0)
	defer src.Close()

	dst := FitWithin(src, 256)
	defer dst.Close()
	if dst.Cols() != 256 || dst.Rows() != 128 {
		t.Errorf("got %dx%d, want 256x128", dst.Cols(), dst.Rows())
	}

	same := FitWithin(src, 1000)
	defer same.Close()
	if same.Cols() != 600 || same.Rows() != 300 {
		t.Errorf("got %dx%d, want unchanged 600x300", same.Cols(), same.Rows())
	}
}

func TestBrightenSaturates(t *testing.T) {
	src := solid(4, 4, 230, 230, 230)
	defer src.Close()

	dst := Brighten(src, 50)
	defer dst.Close()

	v := dst.GetVecbAt(0, 0)
	if v[0] != 255 || v[1] != 255 || v[2] != 255 {
		t.Errorf("got %v, want saturated white", v)
	}
}

func TestAdjustForVirtualCam(t *testing.T) {
	// left half blue, right half red, in BGR order
	src := solid(2, 4, 0, 0, 0)
	defer src.Close()
	for row := 0; row < 2; row++ {
		for col := 0; col < 2; col++ {
			src.SetUCharAt(row, col*3, 200)
		}
		for col := 2; col < 4; col++ {
			src.SetUCharAt(row, col*3+2, 200)
		}
	}

	dst := AdjustForVirtualCam(src, VirtualCamConfig{RGB: true, Mirror: true})
	defer dst.Close()

	// after mirroring, red is on the left and in RGB order it sits in channel 0
	if v := dst.GetVecbAt(0, 0); v[0] != 200 || v[2] != 0 {
		t.Errorf("left pixel = %v, want red in RGB", v)
	}
	if v := dst.GetVecbAt(0, 3); v[2] != 200 || v[0] != 0 {
		t.Errorf("right pixel = %v, want blue in RGB", v)
	}
	if src.GetUCharAt(0, 0) != 200 {
		t.Error("AdjustForVirtualCam modified its input")
	}
}

func TestEqual(t *testing.T) {
	a := solid(8, 8, 10, 20, 30)
	defer a.Close()
	b := a.Clone()
	defer b.Close()

	if !Equal(a, b) {
		t.Error("clones should be equal")
	}
	b.SetUCharAt(3, 3, 0)
	if Equal(a, b) {
		t.Error("modified clone should differ")
	}

	c := solid(8, 9, 10, 20, 30)
	defer c.Close()
	if Equal(a, c) {
		t.Error("different sizes should differ")
	}
}

func TestLargestRect(t *testing.T) {
	rects := []image.Rectangle{
		image.Rect(0, 0, 10, 10),
		image.Rect(5, 5, 40, 20),
		image.Rect(0, 0, 0, 0),
	}
	got, ok := LargestRect(rects)
	if !ok || got != image.Rect(5, 5, 40, 20) {
		t.Errorf("got %v %v", got, ok)
	}
	if _, ok := LargestRect(nil); ok {
		t.Error("no rectangles should not be found")
	}
}

func TestPad(t *testing.T) {
	got := Pad(image.Rect(10, 10, 30, 30), 0.5, image.Rect(0, 0, 35, 100))
	if got != image.Rect(0, 0, 35, 40) {
		t.Errorf("got %v, want (0,0)-(35,40)", got)
	}
}

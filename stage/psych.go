package stage

import (
	"image/color"
	"math"
	"runtime"
	"unsafe"

	"gocv.io/x/gocv"

	"github.com/DaniruKun/visuai/imgproc"
)

// Psychedelizer displaces pixels along sine waves whose phase drifts with the frame counter,
// and tints the frame with a slowly cycling hue.
type Psychedelizer struct {
	TintWeight float64
}

func NewPsychedelizer() *Psychedelizer {
	return &Psychedelizer{TintWeight: 0.15}
}

func (*Psychedelizer) Kind() Kind { return Psychedelic }

func (ps *Psychedelizer) Apply(frame gocv.Mat, p Params, s State) (gocv.Mat, State, error) {
	rows, cols := frame.Rows(), frame.Cols()
	div := p.FrameCountDiv
	if div <= 0 {
		div = 1
	}
	wavelength := p.Wavelength
	if wavelength <= 0 {
		wavelength = 1
	}
	shift := float64(s.Frames / uint64(div))

	mapX, mapY := waveMaps(rows, cols, p.Amplitude, wavelength, shift)
	mx, err := gocv.NewMatFromBytes(rows, cols, gocv.MatTypeCV32F, float32Bytes(mapX))
	if err != nil {
		return gocv.Mat{}, s, err
	}
	defer mx.Close()
	my, err := gocv.NewMatFromBytes(rows, cols, gocv.MatTypeCV32F, float32Bytes(mapY))
	if err != nil {
		return gocv.Mat{}, s, err
	}
	defer my.Close()

	out := gocv.NewMat()
	gocv.Remap(frame, &out, &mx, &my, gocv.InterpolationLinear, gocv.BorderReflect, color.RGBA{})
	// the map Mats point into Go memory
	runtime.KeepAlive(mapX)
	runtime.KeepAlive(mapY)

	if ps.TintWeight > 0 {
		tint := gocv.NewMatWithSizeFromScalar(scalarOf(imgproc.CycleColor(int(s.Frames/uint64(div)), 360)), rows, cols, frame.Type())
		gocv.AddWeighted(out, 1-ps.TintWeight, tint, ps.TintWeight, 0, &out)
		tint.Close()
	}

	next := s
	next.Frames++
	return out, next, nil
}

// waveMaps builds the remap lookup tables: each row is shifted horizontally by a sine of its
// y coordinate and each column vertically by a sine of its x coordinate.
func waveMaps(rows, cols int, amplitude, wavelength, shift float64) ([]float32, []float32) {
	rowOffset := make([]float64, rows)
	for y := range rowOffset {
		rowOffset[y] = amplitude * math.Sin(2*math.Pi*(float64(y)+shift)/wavelength)
	}
	colOffset := make([]float64, cols)
	for x := range colOffset {
		colOffset[x] = amplitude * math.Sin(2*math.Pi*(float64(x)+shift)/wavelength)
	}

	mapX := make([]float32, rows*cols)
	mapY := make([]float32, rows*cols)
	for y := 0; y < rows; y++ {
		base := y * cols
		for x := 0; x < cols; x++ {
			mapX[base+x] = float32(float64(x) + rowOffset[y])
			mapY[base+x] = float32(float64(y) + colOffset[x])
		}
	}
	return mapX, mapY
}

func float32Bytes(f []float32) []byte {
	if len(f) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&f[0])), len(f)*4)
}

package fresnel

import (
	"fmt"

	dspfft "github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/dsp/fourier"
)

// FFTBackend selects the library computing the 2-D discrete Fourier transform.
// Both compute the unnormalized forward transform with an exp(-2πi·kn/N) kernel.
type FFTBackend int

const (
	GonumFFT FFTBackend = iota // gonum dsp/fourier, rows then columns
	GoDSPFFT                   // mjibson/go-dsp FFT2
)

func (b FFTBackend) String() string {
	switch b {
	case GonumFFT:
		return "gonum"
	case GoDSPFFT:
		return "godsp"
	default:
		return fmt.Sprintf("FFTBackend(%d)", int(b))
	}
}

// ParseFFTBackend maps a configuration name to a backend.
func ParseFFTBackend(name string) (FFTBackend, error) {
	switch name {
	case "", "gonum":
		return GonumFFT, nil
	case "godsp":
		return GoDSPFFT, nil
	default:
		return 0, fmt.Errorf("%w %q (want gonum or godsp)", ErrUnknownBackend, name)
	}
}

// fft2InPlace replaces a with its forward 2-D DFT.
func fft2InPlace(a [][]complex128, backend FFTBackend) {
	if backend == GoDSPFFT {
		out := dspfft.FFT2(a)
		for y := range a {
			copy(a[y], out[y])
		}
		return
	}

	h := len(a)
	w := len(a[0])

	rowFFT := fourier.NewCmplxFFT(w)
	colFFT := fourier.NewCmplxFFT(h)

	// rows
	tmp := make([]complex128, w)
	for y := 0; y < h; y++ {
		copy(tmp, a[y])
		rowFFT.Coefficients(tmp, tmp)
		copy(a[y], tmp)
	}

	// cols
	col := make([]complex128, h)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			col[y] = a[y][x]
		}
		colFFT.Coefficients(col, col)
		for y := 0; y < h; y++ {
			a[y][x] = col[y]
		}
	}
}

// fftShift2D swaps the quadrants of an even-sized square array in place so that
// the zero frequency lands at index (n/2, n/2).
func fftShift2D(a [][]complex128) {
	n := len(a)
	h := n / 2
	for y := 0; y < h; y++ {
		for x := 0; x < n; x++ {
			xx := (x + h) % n
			a[y][x], a[y+h][xx] = a[y+h][xx], a[y][x]
		}
	}
}

func makeComplex2D(h, w int) [][]complex128 {
	m := make([][]complex128, h)
	for i := range m {
		m[i] = make([]complex128, w)
	}
	return m
}

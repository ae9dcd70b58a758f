package artifact

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/astrogo/fitsio"
)

// ErrFormat reports a file that is not a FITS primary image this package can read.
var ErrFormat = errors.New("unsupported FITS file")

// Image is the primary image of a FITS file held in memory.
type Image struct {
	Header *fitsio.Header
	Axes   []int     // NAXIS1 first
	Data   []float64 // File order, NAXIS1 fastest, with BSCALE and BZERO applied
}

// At returns the value at the given indices, NAXIS1 first.
func (img *Image) At(idx ...int) float64 {
	off, stride := 0, 1
	for k, i := range idx {
		off += i * stride
		stride *= img.Axes[k]
	}
	return img.Data[off]
}

// Decode reads the primary image of a FITS file. BITPIX 8 and -64 are supported.
func Decode(data []byte) (*Image, error) {
	f, err := fitsio.Open(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	defer f.Close()

	if len(f.HDUs()) == 0 {
		return nil, fmt.Errorf("%w: no HDU", ErrFormat)
	}
	hdu, ok := f.HDU(0).(fitsio.Image)
	if !ok {
		return nil, fmt.Errorf("%w: primary HDU is not an image", ErrFormat)
	}
	h := hdu.Header()
	axes := append([]int(nil), h.Axes()...)
	n := 1
	for _, a := range axes {
		n *= a
	}
	if len(axes) == 0 {
		n = 0
	}

	img := &Image{Header: h, Axes: axes, Data: make([]float64, n)}
	switch h.Bitpix() {
	case 8:
		raw := make([]byte, n)
		if err := hdu.Read(&raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFormat, err)
		}
		for i, v := range raw {
			img.Data[i] = float64(v)
		}
	case -64:
		if err := hdu.Read(&img.Data); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFormat, err)
		}
	default:
		return nil, fmt.Errorf("%w: BITPIX %d", ErrFormat, h.Bitpix())
	}

	scale, zero := 1.0, 0.0
	if h.Get("BSCALE") != nil {
		if scale, err = cardFloat(h, "BSCALE"); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFormat, err)
		}
	}
	if h.Get("BZERO") != nil {
		if zero, err = cardFloat(h, "BZERO"); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFormat, err)
		}
	}
	if scale != 1 || zero != 0 {
		for i, v := range img.Data {
			img.Data[i] = v*scale + zero
		}
	}
	return img, nil
}

// ReadFile decodes the named FITS file.
func ReadFile(name string) (*Image, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	img, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return img, nil
}

// ReadHeader returns the primary header of the named FITS file.
func ReadHeader(name string) (*fitsio.Header, error) {
	r, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	f, err := fitsio.Open(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", name, ErrFormat, err)
	}
	defer f.Close()
	if len(f.HDUs()) == 0 {
		return nil, fmt.Errorf("%s: %w: no HDU", name, ErrFormat)
	}
	return f.HDU(0).Header(), nil
}

// encodeImage writes a single primary image. pix is []byte for BITPIX 8 and []float64 for
// BITPIX -64, in file order.
func encodeImage(bitpix int, axes []int, cards []fitsio.Card, pix interface{}) ([]byte, error) {
	img := fitsio.NewImage(bitpix, axes)
	defer img.Close()
	if err := img.Header().Append(cards...); err != nil {
		return nil, err
	}
	if err := img.Write(pix); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	f, err := fitsio.Create(&buf)
	if err != nil {
		return nil, err
	}
	if err := f.Write(img); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func cardFloat(h *fitsio.Header, key string) (float64, error) {
	c := h.Get(key)
	if c == nil {
		return 0, fmt.Errorf("%s: card not found", key)
	}
	switch v := c.Value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int32:
		return float64(v), nil
	}
	return 0, fmt.Errorf("%s: %v is not a number", key, c.Value)
}

func cardInt(h *fitsio.Header, key string) (int, error) {
	c := h.Get(key)
	if c == nil {
		return 0, fmt.Errorf("%s: card not found", key)
	}
	switch v := c.Value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case int32:
		return int(v), nil
	case float64:
		if v == float64(int(v)) {
			return int(v), nil
		}
	}
	return 0, fmt.Errorf("%s: %v is not an integer", key, c.Value)
}

func cardString(h *fitsio.Header, key string) (string, error) {
	c := h.Get(key)
	if c == nil {
		return "", fmt.Errorf("%s: card not found", key)
	}
	s, ok := c.Value.(string)
	if !ok {
		return "", fmt.Errorf("%s: %v is not a string", key, c.Value)
	}
	return s, nil
}

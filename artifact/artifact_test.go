package artifact

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/astrogo/fitsio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bob-anderson-ok/FresnelArrayDiffraction/fresnel"
)

func testSpec() fresnel.ZonePlateSpec {
	return fresnel.ZonePlateSpec{
		Width:       0.01,
		Zones:       8,
		Obstruction: 0.0013,
		Offset:      0.75,
		Wavelength:  500e-9,
		Duty:        0.2,
	}
}

func TestTimestampedName(t *testing.T) {
	ts := time.Date(2024, 3, 5, 7, 8, 9, 0, time.UTC)
	assert.Equal(t, "FresnelArray_20240305_070809.fits", TimestampedName(MaskPrefix, ts))
	assert.Equal(t, "WavefrontLog10Module_20240305_070809.fits", TimestampedName(Log10ModulusPrefix, ts))
}

func TestMaskHeaderRoundTripRebuildsGrid(t *testing.T) {
	spec := testSpec()
	m, err := fresnel.BuildMask(spec, 96, 2)
	require.NoError(t, err)

	data, err := EncodeMask(m)
	require.NoError(t, err)
	assert.Zero(t, len(data)%2880)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.True(t, Matches(decoded.Header, spec, 96))
	assert.False(t, Matches(decoded.Header, spec, 98))

	got, err := MaskFromImage(decoded)
	require.NoError(t, err)
	assert.True(t, m.Equal(got))

	// Parameters read back from the header alone rebuild an identical grid
	fromHeader, err := SpecFromHeader(decoded.Header)
	require.NoError(t, err)
	assert.Equal(t, spec, fromHeader)
	rebuilt, err := fresnel.BuildMask(fromHeader, decoded.Axes[0], 1)
	require.NoError(t, err)
	assert.True(t, m.Equal(rebuilt))
}

func TestMaskWithSupportBarsRoundTrips(t *testing.T) {
	spec := testSpec()
	spec.BarThickness, spec.BarSpacing = 0.0002, 0.001
	m, err := fresnel.BuildMask(spec, 96, 2)
	require.NoError(t, err)

	data, err := EncodeMask(m)
	require.NoError(t, err)
	got, err := DecodeMask(data)
	require.NoError(t, err)
	assert.Equal(t, spec, got.Spec)
	assert.True(t, m.Equal(got))

	h, err := headerOf(data)
	require.NoError(t, err)
	assert.True(t, Matches(h, spec, 96))
	assert.False(t, Matches(h, testSpec(), 96))
}

func headerOf(data []byte) (*fitsio.Header, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return img.Header, nil
}

func TestMatchesRequiresEveryField(t *testing.T) {
	spec := testSpec()
	h := fitsio.NewHeader(SpecCards(spec), fitsio.IMAGE_HDU, 8, []int{64, 64})
	require.True(t, Matches(h, spec, 64))

	other := spec
	other.Obstruction = 0
	assert.False(t, Matches(h, other, 64))
	other = spec
	other.Duty = 0.25
	assert.False(t, Matches(h, other, 64))
	other = spec
	other.BarThickness, other.BarSpacing = 0.0002, 0.01
	assert.False(t, Matches(h, other, 64))

	cube := fitsio.NewHeader(SpecCards(spec), fitsio.IMAGE_HDU, 8, []int{64, 64, 2})
	assert.False(t, Matches(cube, spec, 64))
	doubles := fitsio.NewHeader(SpecCards(spec), fitsio.IMAGE_HDU, -64, []int{64, 64})
	assert.False(t, Matches(doubles, spec, 64))
}

func TestSpecFromHeaderDefaultsOptionalCards(t *testing.T) {
	h := fitsio.NewHeader([]fitsio.Card{
		{Name: "WIDTH", Value: 0.065},
		{Name: "NZONES", Value: 160},
		{Name: "OBSTR", Value: 0.0},
		{Name: "OFFSET", Value: 0.75},
		{Name: "LAMBDA", Value: 260e-9},
	}, fitsio.IMAGE_HDU, 8, []int{64, 64})
	spec, err := SpecFromHeader(h)
	require.NoError(t, err)
	assert.Equal(t, fresnel.DefaultSpec(), spec)

	empty := fitsio.NewHeader(nil, fitsio.IMAGE_HDU, 8, []int{64, 64})
	_, err = SpecFromHeader(empty)
	assert.ErrorIs(t, err, ErrNotAMask)
}

func TestMaskFiles(t *testing.T) {
	m, err := fresnel.BuildMask(testSpec(), 32, 1)
	require.NoError(t, err)
	name := filepath.Join(t.TempDir(), TimestampedName(MaskPrefix, time.Now()))
	require.NoError(t, WriteMask(name, m))

	got, err := ReadMask(name)
	require.NoError(t, err)
	assert.True(t, m.Equal(got))

	h, err := ReadHeader(name)
	require.NoError(t, err)
	assert.True(t, Matches(h, testSpec(), 32))

	_, err = ReadMask(filepath.Join(t.TempDir(), "missing.fits"))
	assert.Error(t, err)
}

func TestWavefrontComplexRoundTrip(t *testing.T) {
	w, err := fresnel.NewTiltedWavefront(500e-9, 16, 0.01, 1, 33)
	require.NoError(t, err)
	w.Field[3][5] = 0

	data, err := EncodeWavefrontComplex(w)
	require.NoError(t, err)
	img, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, []int{16, 16, 2}, img.Axes)
	assert.Equal(t, imag(w.Field[7][2]), img.At(2, 7, 1))

	got, err := DecodeWavefrontComplex(data)
	require.NoError(t, err)
	assert.Equal(t, w, got)

	// A mask file carries no TYPE card
	m, err := fresnel.BuildMask(testSpec(), 16, 1)
	require.NoError(t, err)
	maskData, err := EncodeMask(m)
	require.NoError(t, err)
	_, err = DecodeWavefrontComplex(maskData)
	assert.ErrorIs(t, err, ErrNotAWavefront)
}

func TestWavefrontModulusImages(t *testing.T) {
	w, err := fresnel.NewWavefront(500e-9, 8, 0.01)
	require.NoError(t, err)
	for i := range w.Field {
		for j := range w.Field[i] {
			w.Field[i][j] = complex(math.Pow(10, float64(j-4)), 0)
		}
	}
	w.Field[0][0] = 0

	data, err := EncodeWavefrontModulus(w)
	require.NoError(t, err)
	mod, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, -64, mod.Header.Bitpix())
	// NAXIS1 follows the columns
	assert.InDelta(t, 1e-3, mod.At(1, 2), 1e-18)
	assert.InDelta(t, 1e2, mod.At(6, 0), 1e-12)
	extent, err := cardFloat(mod.Header, "SIZE")
	require.NoError(t, err)
	assert.Equal(t, 0.01, extent)

	data, err = EncodeWavefrontLog10Modulus(w)
	require.NoError(t, err)
	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 8, decoded.Header.Bitpix())

	// BSCALE and BZERO map the bytes back onto log10|field|, to within half a step
	step, err := cardFloat(decoded.Header, "BSCALE")
	require.NoError(t, err)
	assert.InDelta(t, 7.0/255, step, 1e-15)
	zero, err := cardFloat(decoded.Header, "BZERO")
	require.NoError(t, err)
	assert.InDelta(t, -4, zero, 1e-12)
	assert.Equal(t, zero, decoded.At(0, 0))
	assert.InDelta(t, -4, decoded.At(0, 2), 1e-9)
	assert.InDelta(t, -3, decoded.At(1, 2), step/2)
	assert.InDelta(t, 3, decoded.At(7, 2), 1e-9)
	assert.InDelta(t, 3, decoded.At(7, 3), 1e-9)
}

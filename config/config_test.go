package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bob-anderson-ok/FresnelArrayDiffraction/fresnel"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDefaults(t *testing.T) {
	p, err := FromTable(map[string]interface{}{})
	require.NoError(t, err)

	want := Default()
	want.Defaulted = p.Defaulted
	assert.Equal(t, want, *p)
	assert.Contains(t, p.Defaulted, "wavefront_sampling")
	assert.Contains(t, p.Defaulted, "distance01")
	assert.IsIncreasing(t, p.Defaulted)

	assert.Equal(t, fresnel.DefaultSpec(), p.Spec())
	assert.Equal(t, p.Spec().FocalLength(), p.PropagationDistance())
	backend, err := p.Backend()
	require.NoError(t, err)
	assert.Equal(t, fresnel.GonumFFT, backend)
	assert.Equal(t, ".", p.CacheLocation())
	assert.False(t, p.Spec().HasBars())
}

func TestBackendRejectsUnknownName(t *testing.T) {
	p := Default()
	p.FFTBackend = "fftw"
	_, err := p.Backend()
	assert.ErrorIs(t, err, ErrInvalidParameter)
	assert.ErrorIs(t, err, fresnel.ErrUnknownBackend)
}

func TestSupportBars(t *testing.T) {
	p, err := FromTable(map[string]interface{}{
		"bar_thickness": 0.0002,
		"bar_spacing":   0.01,
	})
	require.NoError(t, err)
	spec := p.Spec()
	assert.Equal(t, 0.0002, spec.BarThickness)
	assert.Equal(t, 0.01, spec.BarSpacing)
	assert.True(t, spec.HasBars())

	_, err = FromTable(map[string]interface{}{"bar_thickness": 0.0002})
	assert.ErrorIs(t, err, ErrInvalidParameter)
	assert.ErrorIs(t, err, fresnel.ErrInvalidSpec)
}

func TestLoadJSON5(t *testing.T) {
	path := writeFile(t, "run.json5", `{
		// comments and trailing commas are fine
		output_directory_path: "out",
		wavefront_sampling: 512,
		source_optical_axis_angle: 0.01,
		source_direction_angle: -90,
		wavelength: 500e-9,
		width: 0.01,
		n_zones: 8,
		distance01: 2.5,
		fft_backend: "godsp",
		cache: "badger",
		save_png_bool: false,
		title: "small plate",
	}`)
	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "out", p.OutputDirectoryPath)
	assert.Equal(t, 512, p.WavefrontSampling)
	assert.Equal(t, 270.0, p.SourceDirectionAngle)
	assert.Equal(t, 8, p.NZones)
	assert.Equal(t, 2.5, p.PropagationDistance())
	backend, err := p.Backend()
	require.NoError(t, err)
	assert.Equal(t, fresnel.GoDSPFFT, backend)
	assert.Equal(t, filepath.Join("out", "maskcache"), p.CacheLocation())
	assert.False(t, p.SavePNG)
	assert.True(t, p.SaveModule)
	assert.Equal(t, "small plate", p.Title)
	assert.NotContains(t, p.Defaulted, "width")
}

func TestLoadYAMLWithSections(t *testing.T) {
	path := writeFile(t, "run.yaml", `
paths:
  output_directory_path: results
grid:
  wavefront_sampling: 256
array:
  width: 0.02
  n_zones: 40
  obstruction: 0.001
  duty_cycle: 0.2
source:
  wavelength: 633e-9
`)
	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "results", p.OutputDirectoryPath)
	assert.Equal(t, 256, p.WavefrontSampling)
	assert.Equal(t, 40, p.NZones)
	assert.Equal(t, 0.001, p.Obstruction)
	assert.Equal(t, 0.2, p.DutyCycle)
	assert.Equal(t, 633e-9, p.Wavelength)
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "run.toml", `
output_directory_path = "toml-out"
wavefront_sampling = 128

[array]
width = 0.03
n_zones = 20
central_offset = 0.5
`)
	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "toml-out", p.OutputDirectoryPath)
	assert.Equal(t, 128, p.WavefrontSampling)
	assert.Equal(t, 20, p.NZones)
	assert.Equal(t, 0.5, p.CentralOffset)
}

func TestTypeErrors(t *testing.T) {
	tests := []struct {
		table map[string]interface{}
		msg   string
	}{
		{map[string]interface{}{"width": "wide"}, "width: is not a number"},
		{map[string]interface{}{"save_png_bool": 1.0}, "save_png_bool: is not a bool"},
		{map[string]interface{}{"title": true}, "title: is not a string"},
		{map[string]interface{}{"n_zones": 10.5}, "n_zones: 10.5 is not an integer"},
	}
	for _, tt := range tests {
		_, err := FromTable(tt.table)
		assert.ErrorIs(t, err, ErrInvalidParameter)
		assert.ErrorContains(t, err, tt.msg)
	}
}

func TestRangeErrors(t *testing.T) {
	tests := []struct {
		key   string
		value interface{}
	}{
		{"wavefront_sampling", -4.0},
		{"wavelength", 0.0},
		{"width", -0.1},
		{"n_zones", 0.0},
		{"obstruction", -1.0},
		{"central_offset", 1.0},
		{"duty_cycle", 0.75},
		{"bar_spacing", -0.01},
		{"distance01", -3.0},
		{"source_optical_axis_angle", 90.0},
		{"fft_backend", "fftw"},
		{"cache", "redis"},
		{"workers", -1.0},
		{"output_directory_path", ""},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			_, err := FromTable(map[string]interface{}{tt.key: tt.value})
			assert.ErrorIs(t, err, ErrInvalidParameter)
			assert.ErrorContains(t, err, tt.key)
		})
	}
}

func TestOddSampling(t *testing.T) {
	_, err := FromTable(map[string]interface{}{"wavefront_sampling": 101.0})
	assert.ErrorIs(t, err, ErrInvalidParameter)
	assert.ErrorIs(t, err, fresnel.ErrInvalidSize)
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode([]byte("{not json"), "json5")
	assert.Error(t, err)
	_, err = Decode([]byte("a = 1"), "ini")
	assert.Error(t, err)

	_, err = Decode([]byte("width: 1\narray:\n  width: 2\n"), "yaml")
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json5"))
	assert.Error(t, err)
}

func TestUnknownKeys(t *testing.T) {
	table, err := Decode([]byte(`{width: 0.01, widht: 0.02, colour: "red"}`), "json5")
	require.NoError(t, err)
	assert.Equal(t, []string{"colour", "widht"}, UnknownKeys(table))
}

func TestFromTableRecordsUnknownKeys(t *testing.T) {
	table, err := Decode([]byte(`{output_directory_path: "out", widht: 0.02}`), "json5")
	require.NoError(t, err)
	p, err := FromTable(table)
	require.NoError(t, err)
	assert.Equal(t, []string{"widht"}, p.Unknown)
	assert.Contains(t, p.Defaulted, "width")
}

func TestSampleParameterFile(t *testing.T) {
	p, err := Load(filepath.Join("..", "fresnelArray.json5"))
	require.NoError(t, err)
	assert.Empty(t, p.Unknown)
	assert.Equal(t, 4000, p.WavefrontSampling)
	assert.Equal(t, fresnel.DefaultSpec(), p.Spec())
	assert.Equal(t, 800, p.WindowSizePixels)
}

// Package config reads the parameter file of a simulation run.
//
// The file is JSON5 by default; names ending in .yaml, .yml or .toml are read as YAML or TOML.
// Keys may be grouped into sections (one level of nesting), which are merged as if every key
// were at the top level. Missing keys take their defaults.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	json "github.com/KevinWang15/go-json5"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/bob-anderson-ok/FresnelArrayDiffraction/fresnel"
)

// ErrInvalidParameter wraps every problem found in a parameter file.
var ErrInvalidParameter = errors.New("invalid parameter")

// Params are the settings of one run.
type Params struct {
	OutputDirectoryPath string `key:"output_directory_path" validate:"required"`

	WavefrontSampling      int     `key:"wavefront_sampling" validate:"gt=0"`
	SourceOpticalAxisAngle float64 `key:"source_optical_axis_angle" validate:"gte=0,lt=90"`
	SourceDirectionAngle   float64 `key:"source_direction_angle" validate:"gte=0,lt=360"`

	Wavelength    float64 `key:"wavelength" validate:"gt=0"`
	Width         float64 `key:"width" validate:"gt=0"`
	NZones        int     `key:"n_zones" validate:"gte=1"`
	Obstruction   float64 `key:"obstruction" validate:"gte=0"`
	CentralOffset float64 `key:"central_offset" validate:"gte=0,lt=1"`
	DutyCycle     float64 `key:"duty_cycle" validate:"gt=0,lte=0.5"`
	BarThickness  float64 `key:"bar_thickness" validate:"gte=0"`
	BarSpacing    float64 `key:"bar_spacing" validate:"gte=0"`

	Distance01      float64 `key:"distance01" validate:"gte=0"`
	FullPhaseFactor bool    `key:"full_phase_factor_bool"`
	FFTBackend      string  `key:"fft_backend" validate:"oneof=gonum godsp"`
	Workers         int     `key:"workers" validate:"gte=0"`

	Cache     string `key:"cache" validate:"oneof=directory badger memory none"`
	CachePath string `key:"cache_path"`

	SaveComplex     bool `key:"save_complex_bool"`
	SaveModule      bool `key:"save_module_bool"`
	SaveLog10Module bool `key:"save_log10_module_bool"`
	SavePNG         bool `key:"save_png_bool"`
	SaveProfile     bool `key:"save_profile_bool"`

	ProfileAngleDegrees float64 `key:"profile_angle_degrees"`
	WindowSizePixels    int     `key:"window_size_pixels" validate:"gte=0"`
	ShowInput           bool    `key:"show_input_bool"`
	Title               string  `key:"title"`

	// Defaulted lists the keys missing from the file, in file-independent order.
	Defaulted []string `key:"-"`

	// Unknown lists the keys of the file that no parameter reads, sorted.
	Unknown []string `key:"-"`
}

// Default returns the parameters used for every missing key.
func Default() Params {
	return Params{
		OutputDirectoryPath: ".",
		WavefrontSampling:   10000,
		Wavelength:          fresnel.DefaultWavelength,
		Width:               fresnel.DefaultWidth,
		NZones:              fresnel.DefaultZones,
		CentralOffset:       fresnel.DefaultOffset,
		DutyCycle:           fresnel.DefaultDuty,
		FFTBackend:          "gonum",
		Cache:               "directory",
		SaveComplex:         true,
		SaveModule:          true,
		SaveLog10Module:     true,
		SavePNG:             true,
		SaveProfile:         true,
	}
}

// Spec returns the Fresnel array described by the parameters.
func (p *Params) Spec() fresnel.ZonePlateSpec {
	return fresnel.ZonePlateSpec{
		Width:       p.Width,
		Zones:       p.NZones,
		Obstruction: p.Obstruction,
		Offset:      p.CentralOffset,
		Wavelength:  p.Wavelength,
		Duty:        p.DutyCycle,

		BarThickness: p.BarThickness,
		BarSpacing:   p.BarSpacing,
	}
}

// PropagationDistance is distance01, or the focal length of the array when distance01 is 0.
func (p *Params) PropagationDistance() float64 {
	if p.Distance01 > 0 {
		return p.Distance01
	}
	return p.Spec().FocalLength()
}

// Backend returns the configured FFT backend.
func (p *Params) Backend() (fresnel.FFTBackend, error) {
	b, err := fresnel.ParseFFTBackend(p.FFTBackend)
	if err != nil {
		return 0, fmt.Errorf("%w: fft_backend: %w", ErrInvalidParameter, err)
	}
	return b, nil
}

// CacheLocation is cache_path, defaulting to the output directory for FITS files and to
// its maskcache subdirectory for the database.
func (p *Params) CacheLocation() string {
	if p.CachePath != "" {
		return p.CachePath
	}
	if p.Cache == "badger" {
		return filepath.Join(p.OutputDirectoryPath, "maskcache")
	}
	return p.OutputDirectoryPath
}

// Load reads and validates the named parameter file.
func Load(path string) (*Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read parameter file: %w", err)
	}
	table, err := Decode(data, formatOf(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return FromTable(table)
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".toml":
		return "toml"
	default:
		return "json5"
	}
}

// Decode parses data in the given format ("json5", "yaml" or "toml") into a flat table:
// sections are merged into the top level and every number becomes a float64.
func Decode(data []byte, format string) (map[string]interface{}, error) {
	raw := map[string]interface{}{}
	var err error
	switch format {
	case "json5", "json", "":
		err = json.Unmarshal(data, &raw)
	case "yaml":
		err = yaml.Unmarshal(data, &raw)
	case "toml":
		err = toml.Unmarshal(data, &raw)
	default:
		return nil, fmt.Errorf("unknown parameter file format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", format, err)
	}

	table := map[string]interface{}{}
	for k, v := range raw {
		if section, ok := v.(map[string]interface{}); ok {
			for sk, sv := range section {
				if _, dup := table[sk]; dup {
					return nil, fmt.Errorf("%w: %s: defined twice", ErrInvalidParameter, sk)
				}
				table[sk] = normalize(sv)
			}
			continue
		}
		if _, dup := table[k]; dup {
			return nil, fmt.Errorf("%w: %s: defined twice", ErrInvalidParameter, k)
		}
		table[k] = normalize(v)
	}
	return table, nil
}

func normalize(v interface{}) interface{} {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	}
	return v
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := f.Tag.Get("key")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// FromTable fills Params from a decoded table, type checking every leaf, then checks ranges.
func FromTable(table map[string]interface{}) (*Params, error) {
	p := Default()
	if msg, ok := validateTableAndFillParams(table, &p); !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidParameter, msg)
	}
	p.Unknown = UnknownKeys(table)

	if p.WavefrontSampling%2 != 0 {
		return nil, fmt.Errorf("%w: wavefront_sampling: %d is not an even number: %w",
			ErrInvalidParameter, p.WavefrontSampling, fresnel.ErrInvalidSize)
	}
	if err := validate.Struct(&p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s: %v fails %s", fe.Field(), fe.Value(), rule(fe))
			}
			return nil, fmt.Errorf("%w: %s", ErrInvalidParameter, strings.Join(msgs, "; "))
		}
		return nil, err
	}
	if err := p.Spec().Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParameter, err)
	}
	return &p, nil
}

func rule(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}

// UnknownKeys lists the keys of table that no parameter reads, sorted.
func UnknownKeys(table map[string]interface{}) []string {
	known := map[string]bool{}
	t := reflect.TypeOf(Params{})
	for i := 0; i < t.NumField(); i++ {
		known[t.Field(i).Tag.Get("key")] = true
	}
	var unknown []string
	for k := range table {
		if !known[k] {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	return unknown
}

func getLeafValue(table map[string]interface{}, path ...string) (interface{}, bool) {
	var cur interface{} = table
	for _, p := range path {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// fillFloat, fillInt, fillBool and fillString copy one leaf into dst, leaving the default
// in place and recording the key when it is missing.
func fillFloat(table map[string]interface{}, key string, dst *float64, defaulted *[]string) (string, bool) {
	v, ok := getLeafValue(table, key)
	if !ok {
		*defaulted = append(*defaulted, key)
		return "", true
	}
	f, ok := v.(float64)
	if !ok {
		return key + ": is not a number", false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return key + ": is not finite", false
	}
	*dst = f
	return "", true
}

func fillInt(table map[string]interface{}, key string, dst *int, defaulted *[]string) (string, bool) {
	var f float64
	missing := len(*defaulted)
	if msg, ok := fillFloat(table, key, &f, defaulted); !ok {
		return msg, false
	}
	if len(*defaulted) > missing {
		return "", true
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return fmt.Sprintf("%s: %g is not an integer", key, f), false
	}
	*dst = int(f)
	return "", true
}

func fillBool(table map[string]interface{}, key string, dst *bool, defaulted *[]string) (string, bool) {
	v, ok := getLeafValue(table, key)
	if !ok {
		*defaulted = append(*defaulted, key)
		return "", true
	}
	*dst, ok = v.(bool)
	if !ok {
		return key + ": is not a bool", false
	}
	return "", true
}

func fillString(table map[string]interface{}, key string, dst *string, defaulted *[]string) (string, bool) {
	v, ok := getLeafValue(table, key)
	if !ok {
		*defaulted = append(*defaulted, key)
		return "", true
	}
	*dst, ok = v.(string)
	if !ok {
		return key + ": is not a string", false
	}
	return "", true
}

func validateTableAndFillParams(table map[string]interface{}, p *Params) (string, bool) {
	d := &p.Defaulted

	for _, f := range []struct {
		key string
		dst *string
	}{
		{"output_directory_path", &p.OutputDirectoryPath},
		{"fft_backend", &p.FFTBackend},
		{"cache", &p.Cache},
		{"cache_path", &p.CachePath},
		{"title", &p.Title},
	} {
		if msg, ok := fillString(table, f.key, f.dst, d); !ok {
			return msg, false
		}
	}

	for _, f := range []struct {
		key string
		dst *int
	}{
		{"wavefront_sampling", &p.WavefrontSampling},
		{"n_zones", &p.NZones},
		{"workers", &p.Workers},
		{"window_size_pixels", &p.WindowSizePixels},
	} {
		if msg, ok := fillInt(table, f.key, f.dst, d); !ok {
			return msg, false
		}
	}

	for _, f := range []struct {
		key string
		dst *float64
	}{
		{"source_optical_axis_angle", &p.SourceOpticalAxisAngle},
		{"source_direction_angle", &p.SourceDirectionAngle},
		{"wavelength", &p.Wavelength},
		{"width", &p.Width},
		{"obstruction", &p.Obstruction},
		{"central_offset", &p.CentralOffset},
		{"duty_cycle", &p.DutyCycle},
		{"bar_thickness", &p.BarThickness},
		{"bar_spacing", &p.BarSpacing},
		{"distance01", &p.Distance01},
		{"profile_angle_degrees", &p.ProfileAngleDegrees},
	} {
		if msg, ok := fillFloat(table, f.key, f.dst, d); !ok {
			return msg, false
		}
	}

	for _, f := range []struct {
		key string
		dst *bool
	}{
		{"full_phase_factor_bool", &p.FullPhaseFactor},
		{"save_complex_bool", &p.SaveComplex},
		{"save_module_bool", &p.SaveModule},
		{"save_log10_module_bool", &p.SaveLog10Module},
		{"save_png_bool", &p.SavePNG},
		{"save_profile_bool", &p.SaveProfile},
		{"show_input_bool", &p.ShowInput},
	} {
		if msg, ok := fillBool(table, f.key, f.dst, d); !ok {
			return msg, false
		}
	}

	// Directions are periodic; only the deviation from the axis is range checked
	p.SourceDirectionAngle = math.Mod(p.SourceDirectionAngle, 360)
	if p.SourceDirectionAngle < 0 {
		p.SourceDirectionAngle += 360
	}
	sort.Strings(p.Defaulted)
	return "No problem found in parameter file", true
}

// Package maskcache keeps rasterized Fresnel array masks between runs. A mask is fully
// determined by its parameters and grid size, so stores are addressed by that pair.
package maskcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/bob-anderson-ok/FresnelArrayDiffraction/fresnel"
)

// Key identifies one mask.
type Key struct {
	Spec fresnel.ZonePlateSpec
	Size int
}

// String is a canonical text form: equal keys give equal strings and vice versa.
func (k Key) String() string {
	g := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	s := k.Spec
	return fmt.Sprintf("width=%s;zones=%d;obstruction=%s;offset=%s;lambda=%s;duty=%s;bars=%s/%s;size=%d",
		g(s.Width), s.Zones, g(s.Obstruction), g(s.Offset), g(s.Wavelength), g(s.Duty),
		g(s.BarThickness), g(s.BarSpacing), k.Size)
}

// Digest is the hex SHA-256 of String.
func (k Key) Digest() string {
	sum := sha256.Sum256([]byte(k.String()))
	return hex.EncodeToString(sum[:])
}

// Store gets and puts masks. Get reports a miss with ok == false and a nil error.
// Implementations are safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key Key) (m *fresnel.Mask, ok bool, err error)
	Put(ctx context.Context, key Key, m *fresnel.Mask) error
}

// GetOrBuild returns the cached mask for spec and size, building and storing it on a miss.
// hit reports whether the mask came from the store. A nil store always builds.
func GetOrBuild(ctx context.Context, store Store, spec fresnel.ZonePlateSpec, size, workers int) (m *fresnel.Mask, hit bool, err error) {
	key := Key{Spec: spec, Size: size}
	if store != nil {
		m, ok, err := store.Get(ctx, key)
		if err != nil {
			return nil, false, fmt.Errorf("mask cache lookup: %w", err)
		}
		if ok {
			return m, true, nil
		}
	}

	m, err = fresnel.BuildMask(spec, size, workers)
	if err != nil {
		return nil, false, err
	}

	if store != nil {
		if err := store.Put(ctx, key, m); err != nil {
			return nil, false, fmt.Errorf("mask cache store: %w", err)
		}
	}
	return m, false, nil
}

package maskcache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bob-anderson-ok/FresnelArrayDiffraction/artifact"
	"github.com/bob-anderson-ok/FresnelArrayDiffraction/fresnel"
)

// DirStore keeps masks as FITS files in a directory, next to the other products of a run.
// Get scans the *.fits files and returns the first whose header and dimensions match the key
// exactly; files that are not masks are skipped.
type DirStore struct {
	Dir string

	// Now names new files; nil means time.Now.
	Now func() time.Time

	mu sync.Mutex
}

func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create mask directory %s: %w", dir, err)
	}
	return &DirStore{Dir: dir}, nil
}

func (s *DirStore) Get(ctx context.Context, key Key) (*fresnel.Mask, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, ok, err := s.find(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	m, err := artifact.ReadMask(name)
	if err != nil {
		return nil, false, err
	}
	return m, true, nil
}

func (s *DirStore) Put(ctx context.Context, _ Key, m *fresnel.Mask) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	base := artifact.TimestampedName(artifact.MaskPrefix, now())
	name := filepath.Join(s.Dir, base)
	for i := 1; fileExists(name); i++ {
		name = filepath.Join(s.Dir, fmt.Sprintf("%s_%d.fits", strings.TrimSuffix(base, ".fits"), i))
	}
	return artifact.WriteMask(name, m)
}

// Path returns the file holding the mask for key, if any.
func (s *DirStore) Path(ctx context.Context, key Key) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(ctx, key)
}

func (s *DirStore) find(ctx context.Context, key Key) (string, bool, error) {
	names, err := filepath.Glob(filepath.Join(s.Dir, "*.fits"))
	if err != nil {
		return "", false, err
	}
	sort.Strings(names)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return "", false, err
		}
		h, err := artifact.ReadHeader(name)
		if err == nil && artifact.Matches(h, key.Spec, key.Size) {
			return name, true, nil
		}
	}
	return "", false, nil
}

func fileExists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

// Package pipeline runs one simulation: it gets or builds the Fresnel array mask, illuminates it
// with a (possibly tilted) plane wave, propagates the field to the observation plane and saves
// the requested products in the output directory.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bob-anderson-ok/FresnelArrayDiffraction/artifact"
	"github.com/bob-anderson-ok/FresnelArrayDiffraction/config"
	"github.com/bob-anderson-ok/FresnelArrayDiffraction/fresnel"
	"github.com/bob-anderson-ok/FresnelArrayDiffraction/maskcache"
	"github.com/bob-anderson-ok/FresnelArrayDiffraction/profile"
	"github.com/bob-anderson-ok/FresnelArrayDiffraction/render"
)

// Names of the image products.
const (
	DiffractionImageFile = "diffractionImage8bit.png"
	IntensityImageFile   = "intensity16bit.png"
	MaskImageFile        = "fresnelArray.png"
	CutImageFile         = "diffractionImageWithCut.png"
	ProfilePlotFile      = "profile.png"
	ProfileHTMLFile      = "profile.html"
)

type App struct {
	Params *config.Params

	// Store caches masks between runs. Nil means the one selected by Params.Cache,
	// opened and closed by Run.
	Store maskcache.Store

	Log logrus.FieldLogger

	// Now stamps the FITS file names; nil means time.Now.
	Now func() time.Time
}

// Result holds what a run computed and where it was saved.
type Result struct {
	Mask          *fresnel.Mask
	MaskFromCache bool
	Wavefront     *fresnel.Wavefront
	Distance      float64

	Profile []profile.Point
	Summary profile.Summary

	View        *image.Gray // Percentile-stretched intensity
	MaskView    *image.Gray
	CutView     image.Image
	ProfileView image.Image

	Files []string
}

func New(params *config.Params, log logrus.FieldLogger) *App {
	return &App{Params: params, Log: log}
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// Run executes the whole sequence. It stops between steps when ctx is canceled.
func (a *App) Run(ctx context.Context) (*Result, error) {
	p := a.Params
	log := a.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	appTime := time.Now()
	defer func() {
		log.WithField("time", time.Since(appTime)).Info("Run finished")
	}()
	log.WithFields(logrus.Fields{
		"output":     p.OutputDirectoryPath,
		"sampling":   p.WavefrontSampling,
		"spec":       p.Spec().String(),
		"deviation":  p.SourceOpticalAxisAngle,
		"azimuth":    p.SourceDirectionAngle,
		"distance01": p.Distance01,
		"backend":    p.FFTBackend,
		"cache":      p.Cache,
	}).Debug("Run started")
	if p.ShowInput {
		log.WithField("params", fmt.Sprintf("%+v", *p)).Info("Parameters")
	}
	for _, key := range p.Unknown {
		log.WithField("key", key).Warn("Unknown parameter ignored")
	}
	for _, key := range p.Defaulted {
		log.WithField("key", key).Debug("Parameter missing, using default")
	}

	if err := os.MkdirAll(p.OutputDirectoryPath, 0750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	store := a.Store
	if store == nil {
		s, closeStore, err := OpenStore(p, log)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := closeStore(); err != nil {
				log.WithError(err).Warn("Closing mask cache failed")
			}
		}()
		store = s
	}

	res := &Result{Distance: p.PropagationDistance()}

	stepTime := time.Now()
	mask, hit, err := maskcache.GetOrBuild(ctx, store, p.Spec(), p.WavefrontSampling, p.Workers)
	if err != nil {
		return nil, fmt.Errorf("failed to get Fresnel array: %w", err)
	}
	res.Mask, res.MaskFromCache = mask, hit
	log.WithFields(logrus.Fields{
		"time":        time.Since(stepTime),
		"cached":      hit,
		"transparent": mask.TransparentFraction(),
	}).Info("Fresnel array ready")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stepTime = time.Now()
	w, err := fresnel.NewTiltedWavefront(p.Wavelength, p.WavefrontSampling, p.Width,
		p.SourceOpticalAxisAngle, p.SourceDirectionAngle)
	if err != nil {
		return nil, fmt.Errorf("failed to create wavefront: %w", err)
	}
	if err := w.ApplyMask(mask); err != nil {
		return nil, err
	}
	energy := w.TotalEnergy()
	log.WithFields(logrus.Fields{
		"time":   time.Since(stepTime),
		"energy": energy,
	}).Info("Wavefront masked")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stepTime = time.Now()
	backend, err := p.Backend()
	if err != nil {
		return nil, err
	}
	prop := fresnel.Propagator{Backend: backend, FullPhase: p.FullPhaseFactor, Workers: p.Workers}
	if err := prop.Propagate(w, res.Distance); err != nil {
		return nil, fmt.Errorf("failed to propagate wavefront: %w", err)
	}
	res.Wavefront = w
	log.WithFields(logrus.Fields{
		"time":     time.Since(stepTime),
		"distance": res.Distance,
		"extent":   w.Extent,
		"energy":   w.TotalEnergy(),
	}).Info("Wavefront propagated")

	if err := a.saveFITS(ctx, res, log); err != nil {
		return nil, err
	}
	if err := a.saveImages(ctx, res, log); err != nil {
		return nil, err
	}
	return res, nil
}

func (a *App) saveFITS(ctx context.Context, res *Result, log logrus.FieldLogger) error {
	p := a.Params
	stamp := a.now()
	products := []struct {
		enabled bool
		prefix  string
		encode  func(*fresnel.Wavefront) ([]byte, error)
	}{
		{p.SaveComplex, artifact.ComplexPrefix, artifact.EncodeWavefrontComplex},
		{p.SaveModule, artifact.ModulusPrefix, artifact.EncodeWavefrontModulus},
		{p.SaveLog10Module, artifact.Log10ModulusPrefix, artifact.EncodeWavefrontLog10Modulus},
	}
	for _, prod := range products {
		if !prod.enabled {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := prod.encode(res.Wavefront)
		if err != nil {
			return err
		}
		name := filepath.Join(p.OutputDirectoryPath, artifact.TimestampedName(prod.prefix, stamp))
		if err := os.WriteFile(name, data, 0644); err != nil {
			return fmt.Errorf("failed to save wavefront: %w", err)
		}
		res.Files = append(res.Files, name)
		log.WithField("file", name).Info("Wavefront saved")
	}
	return nil
}

func (a *App) saveImages(ctx context.Context, res *Result, log logrus.FieldLogger) error {
	p := a.Params
	if !p.SavePNG && !p.SaveProfile && p.WindowSizePixels == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	intensity := res.Wavefront.Intensity()
	view, err := render.GrayPercentile(intensity, 0.5, 99.9)
	if err != nil {
		return fmt.Errorf("failed to render diffraction image: %w", err)
	}
	res.View = view
	res.MaskView = render.Mask(res.Mask)

	cut, err := profile.NewCut(res.Wavefront.Size, res.Wavefront.Extent, p.ProfileAngleDegrees, 0)
	if err != nil {
		return err
	}
	res.Profile, err = profile.Extract(intensity, cut)
	if err != nil {
		return err
	}
	res.Summary = profile.Summarize(res.Profile)
	res.CutView = profile.DrawCut(view, cut)
	log.WithFields(logrus.Fields{
		"angle":    p.ProfileAngleDegrees,
		"peak":     res.Summary.Peak,
		"position": res.Summary.PeakPosition,
		"fwhm":     res.Summary.FWHM,
	}).Info("Profile extracted")

	title := p.Title
	if title == "" {
		title = fmt.Sprintf("Intensity profile at %.4g m", res.Distance)
	}
	res.ProfileView, err = profile.Plot(res.Profile, title, 800, 400)
	if err != nil {
		return err
	}

	out := func(name string) string { return filepath.Join(p.OutputDirectoryPath, name) }
	if p.SavePNG {
		gray16, err := render.Gray16(render.PeakNormalized(intensity), render.Gray16FullScale)
		if err != nil {
			return err
		}
		for _, f := range []struct {
			name string
			img  image.Image
		}{
			{DiffractionImageFile, view},
			{IntensityImageFile, gray16},
			{MaskImageFile, res.MaskView},
			{CutImageFile, res.CutView},
		} {
			if err := render.SavePNG(out(f.name), f.img); err != nil {
				return fmt.Errorf("failed to save %s: %w", f.name, err)
			}
			res.Files = append(res.Files, out(f.name))
		}
		log.Info("Images saved")
	}
	if p.SaveProfile {
		if err := profile.SavePlot(out(ProfilePlotFile), res.Profile, title, 800, 400); err != nil {
			return fmt.Errorf("failed to save profile plot: %w", err)
		}
		if err := profile.SaveHTML(out(ProfileHTMLFile), res.Profile, title); err != nil {
			return fmt.Errorf("failed to save profile chart: %w", err)
		}
		res.Files = append(res.Files, out(ProfilePlotFile), out(ProfileHTMLFile))
		log.Info("Profile saved")
	}
	return nil
}

// OpenStore opens the mask cache selected by p.Cache. The returned function releases it.
func OpenStore(p *config.Params, log logrus.FieldLogger) (maskcache.Store, func() error, error) {
	noop := func() error { return nil }
	switch p.Cache {
	case "none":
		return nil, noop, nil
	case "memory":
		return maskcache.NewMemoryStore(), noop, nil
	case "badger":
		s, err := maskcache.OpenBadger(maskcache.BadgerConfig{
			Path:       p.CacheLocation(),
			SyncWrites: true,
			Logger:     log,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		s, err := maskcache.NewDirStore(p.CacheLocation())
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil
	}
}

package geotag

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kamataryo/geotag/internal/config"
	"github.com/kamataryo/geotag/internal/exif"
	"github.com/kamataryo/geotag/internal/fshelper"
	"github.com/kamataryo/geotag/internal/logger"
	"github.com/kamataryo/geotag/internal/progress"
	"github.com/kamataryo/geotag/internal/timeline"
	"github.com/kamataryo/geotag/internal/track"
	"github.com/kamataryo/geotag/pkg/common"
)

// Publisher uploads an annotated copy
type Publisher interface {
	Publish(ctx context.Context, path string, fix *timeline.TimePoint) error
}

// Run owns the timeline and the matched images of one geotag invocation
type Run struct {
	TrackPath string
	Pattern   string
	OutputDir string
	Timeline  timeline.Timeline
	Images    []string

	offsets         OffsetProvider
	publisher       Publisher
	reporter        *progress.Reporter
	continueOnError bool
	dryRun          bool
}

// Option configures a Run
type Option func(*Run)

// WithOffsetProvider overrides the offset used for capture times
func WithOffsetProvider(p OffsetProvider) Option {
	return func(r *Run) {
		r.offsets = p
	}
}

// WithPublisher uploads every annotated copy through p
func WithPublisher(p Publisher) Option {
	return func(r *Run) {
		r.publisher = p
	}
}

// WithReporter replaces the default progress reporter
func WithReporter(rep *progress.Reporter) Option {
	return func(r *Run) {
		r.reporter = rep
	}
}

// New reads the track log, builds the timeline and resolves the image pattern.
// A track log that cannot be turned into a timeline fails the whole run.
func New(cfg *config.Config, opts ...Option) (*Run, error) {
	r := &Run{
		TrackPath:       cfg.TrackPath,
		Pattern:         cfg.ImagePattern,
		OutputDir:       cfg.OutputDir,
		offsets:         LocalOffset{},
		reporter:        progress.New(),
		continueOnError: cfg.ContinueOnError,
		dryRun:          cfg.DryRun,
	}

	if cfg.HasOffset() {
		off, err := config.ParseOffset(cfg.UTCOffset)
		if err != nil {
			return nil, err
		}
		r.offsets = FixedOffset(off)
	}

	for _, opt := range opts {
		opt(r)
	}

	fixes, err := track.Read(r.TrackPath)
	if err != nil {
		return nil, err
	}

	r.Timeline, err = timeline.Build(fixes)
	if err != nil {
		return nil, fmt.Errorf("build timeline from %s: %w", r.TrackPath, err)
	}

	if first, last := r.Timeline.Bounds(); len(r.Timeline) > 0 {
		logger.Info("Loaded %d track points from %s (%s to %s)", len(r.Timeline), r.TrackPath,
			time.Unix(first, 0).UTC().Format(time.RFC3339), time.Unix(last, 0).UTC().Format(time.RFC3339))
	} else {
		logger.Warn("Track log %s has no track points; no image will be tagged", r.TrackPath)
	}

	r.Images, err = fshelper.ResolvePattern(r.Pattern)
	if err != nil {
		return nil, err
	}

	return r, nil
}

// Execute copies every matched image into the output directory and writes GPS
// fields into each copy whose capture time the timeline brackets.
// It stops at the first failure unless continue_on_error is set, in which
// case all failures are returned joined.
func (r *Run) Execute(ctx context.Context) (progress.Summary, error) {
	if len(r.Images) == 0 {
		return progress.Summary{}, common.NewError(common.KindNoImagesMatched, r.Pattern, nil)
	}

	if r.dryRun {
		logger.Info("Dry run: nothing will be written to %s", r.OutputDir)
	} else if err := fshelper.EnsureDir(r.OutputDir); err != nil {
		return progress.Summary{}, err
	}

	offset := r.offsets.UTCOffset()
	logger.Debug("Reading capture times at UTC offset %s", offset)

	r.reporter.Start(len(r.Images))

	var errs []error
	// output path -> source that claimed it
	outputs := make(map[string]string, len(r.Images))
	for _, src := range r.Images {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}

		dst := fshelper.OutputPath(r.OutputDir, src)
		err := claimOutput(outputs, src, dst)
		if err == nil {
			err = r.tagImage(ctx, src, dst, offset)
		}
		if err != nil {
			r.reporter.Error(src, err)
			errs = append(errs, err)
			if !r.continueOnError {
				break
			}
		}
	}

	return r.reporter.Finish(), errors.Join(errs...)
}

// claimOutput refuses a second source whose copy would land on the same
// output file, as happens with ** patterns over directories sharing file names
func claimOutput(outputs map[string]string, src, dst string) error {
	if prev, taken := outputs[dst]; taken {
		return common.NewError(common.KindOutputUnwritable, src, fmt.Errorf("copy of %s already written to %s", prev, dst))
	}
	outputs[dst] = src
	return nil
}

func (r *Run) tagImage(ctx context.Context, src, dst string, offset time.Duration) error {
	// A dry run inspects the source since no copy exists
	target := src
	if !r.dryRun {
		if err := fshelper.CopyFile(src, dst); err != nil {
			return err
		}
		target = dst
	}

	text, ok, err := exif.ReadCaptureTime(target)
	if err != nil {
		return err
	}
	if !ok {
		r.reporter.NoCaptureTime(src)
		return nil
	}

	taken, err := exif.ParseCaptureTime(text, offset)
	if err != nil {
		return fmt.Errorf("%s: %w", src, err)
	}

	fix, ok := r.Timeline.Interpolate(taken)
	if !ok {
		r.reporter.NoFix(src)
		return nil
	}

	if r.dryRun {
		logger.Info("Would tag %s at %.6f, %.6f", src, fix.Lat, fix.Lon)
		r.reporter.Tagged(src)
		return nil
	}

	if err := exif.WriteGPS(dst, exif.NewGPSTag(fix.Lat, fix.Lon, fix.Elevation)); err != nil {
		return err
	}
	logger.Info("Tagged %s at %.6f, %.6f", dst, fix.Lat, fix.Lon)

	if r.publisher != nil {
		if err := r.publisher.Publish(ctx, dst, &fix); err != nil {
			return err
		}
		r.reporter.Published(dst)
	}

	r.reporter.Tagged(src)
	return nil
}

// internal/progress/reporter.go
package progress

import (
	"sync"
	"time"

	"github.com/kamataryo/geotag/internal/logger"
)

// Summary is the outcome count of one geotag run
type Summary struct {
	Total         int
	Tagged        int
	NoCaptureTime int
	NoFix         int
	Published     int
	Errors        int
	Duration      time.Duration
}

// Processed returns the number of images that reached a final outcome
func (s Summary) Processed() int {
	return s.Tagged + s.NoCaptureTime + s.NoFix + s.Errors
}

// Reporter tracks and reports geotag progress
type Reporter struct {
	mu             sync.Mutex
	summary        Summary
	startTime      time.Time
	lastUpdateTime time.Time
	updateInterval time.Duration
	now            func() time.Time
}

// New creates a new progress reporter
func New() *Reporter {
	return &Reporter{
		updateInterval: 2 * time.Second,
		now:            time.Now,
	}
}

// Start initializes the progress reporter with the total number of images
func (r *Reporter) Start(total int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.summary = Summary{Total: total}
	r.startTime = r.now()
	r.lastUpdateTime = r.startTime

	logger.Info("Geotagging %d images", total)
}

// Tagged marks an image as annotated with GPS fields
func (r *Reporter) Tagged(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.summary.Tagged++
	r.updateProgress()
}

// NoCaptureTime marks an image copied without GPS fields because it has no capture time
func (r *Reporter) NoCaptureTime(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	logger.Debug("No capture time in %s, copied without GPS", path)
	r.summary.NoCaptureTime++
	r.updateProgress()
}

// NoFix marks an image whose capture time has no bracketing track fixes
func (r *Reporter) NoFix(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	logger.Debug("No track fix brackets %s, copied without GPS", path)
	r.summary.NoFix++
	r.updateProgress()
}

// Published marks an annotated copy as uploaded
func (r *Reporter) Published(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.summary.Published++
}

// Error marks an image as failed
func (r *Reporter) Error(path string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	logger.Error("Failed to geotag %s: %v", path, err)
	r.summary.Errors++
	r.updateProgress()
}

// Finish completes the progress reporting and returns the summary
func (r *Reporter) Finish() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.summary.Duration = r.now().Sub(r.startTime)
	s := r.summary

	logger.Info("Geotag complete: %d/%d tagged, %d without capture time, %d without track fix, %d published, %d errors in %s",
		s.Tagged, s.Total, s.NoCaptureTime, s.NoFix, s.Published, s.Errors, s.Duration.Round(time.Millisecond))

	return s
}

// updateProgress logs a progress line at most once per update interval
func (r *Reporter) updateProgress() {
	now := r.now()
	if now.Sub(r.lastUpdateTime) < r.updateInterval {
		return
	}
	r.lastUpdateTime = now

	processed := r.summary.Processed()
	if processed == 0 || r.summary.Total == 0 {
		return
	}

	percentage := float64(processed) / float64(r.summary.Total) * 100
	logger.Info("Progress: %.1f%% (%d/%d, %d tagged, %d skipped, %d errors)",
		percentage, processed, r.summary.Total, r.summary.Tagged,
		r.summary.NoCaptureTime+r.summary.NoFix, r.summary.Errors)
}

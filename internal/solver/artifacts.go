package solver

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/xkilldash9x/slidejig/internal/browser"
	"github.com/xkilldash9x/slidejig/internal/imaging"
)

// Artifacts writes optional debug output for one run. Failures are logged and
// never affect the attempt.
type Artifacts struct {
	root        string
	saveSamples bool
	screenshots bool
	logger      *zap.Logger
}

func NewArtifacts(dir string, saveSamples, screenshotOnFailure bool, logger *zap.Logger) *Artifacts {
	return &Artifacts{
		root:        dir,
		saveSamples: saveSamples,
		screenshots: screenshotOnFailure,
		logger:      logger.Named("artifacts"),
	}
}

// AttemptDir is where the files of one attempt go.
func (a *Artifacts) AttemptDir(runID string, attempt int) string {
	return filepath.Join(a.root, runID, fmt.Sprintf("attempt-%d", attempt))
}

func (a *Artifacts) ensure(dir string) bool {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		a.logger.Warn("Cannot create artifact directory", zap.String("dir", dir), zap.Error(err))
		return false
	}
	return true
}

// Contours renders mask with loc outlined. loc may be nil.
func (a *Artifacts) Contours(dir, name string, mask *imaging.Image, loc *imaging.Location, label string) {
	if a == nil || mask == nil || !a.ensure(dir) {
		return
	}
	path := filepath.Join(dir, name)
	if err := imaging.WriteDebugPNG(path, mask, loc, label); err != nil {
		a.logger.Warn("Failed to write contour rendering", zap.String("path", path), zap.Error(err))
		return
	}
	a.logger.Debug("Wrote contour rendering", zap.String("path", path))
}

// Screenshot stores a page screenshot taken after a failure.
func (a *Artifacts) Screenshot(dir string, png []byte) {
	if a == nil || !a.screenshots || len(png) == 0 || !a.ensure(dir) {
		return
	}
	path := filepath.Join(dir, "failure.png")
	if err := os.WriteFile(path, png, 0o644); err != nil {
		a.logger.Warn("Failed to write screenshot", zap.String("path", path), zap.Error(err))
	}
}

// Sample saves the captured layers when sample saving is on.
func (a *Artifacts) Sample(dir string, imgs *browser.CaptchaImages, meta SampleMeta) {
	if a == nil || !a.saveSamples || imgs == nil {
		return
	}
	if err := SaveSample(filepath.Join(dir, "sample"), imgs, meta); err != nil {
		a.logger.Warn("Failed to save sample", zap.String("dir", dir), zap.Error(err))
	}
}

// WantsScreenshot reports whether a failure screenshot should be taken.
func (a *Artifacts) WantsScreenshot() bool {
	return a != nil && a.screenshots
}

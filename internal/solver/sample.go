package solver

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/slidejig/internal/browser"
	"github.com/xkilldash9x/slidejig/internal/imaging"
)

const sampleMetaFile = "meta.yaml"

// sampleExtensions are tried in order when loading a layer.
var sampleExtensions = []string{".png", ".webp", ".bmp"}

// SampleMeta is stored as meta.yaml next to the captured layers.
type SampleMeta struct {
	ID         string         `yaml:"id"`
	URL        string         `yaml:"url,omitempty"`
	CapturedAt time.Time      `yaml:"captured_at"`
	Width      int            `yaml:"width"`
	Height     int            `yaml:"height"`
	Slot       *imaging.Point `yaml:"slot,omitempty"`
	Piece      *imaging.Point `yaml:"piece,omitempty"`
	FinalX     float64        `yaml:"final_x,omitempty"`
	Outcome    string         `yaml:"outcome,omitempty"`
}

// Sample is a captured challenge read back from disk.
type Sample struct {
	Dir    string
	Images browser.CaptchaImages
	// Meta is nil when the directory has no meta.yaml.
	Meta *SampleMeta
}

// SaveSample writes the three layers as PNG plus meta.yaml into dir.
func SaveSample(dir string, imgs *browser.CaptchaImages, meta SampleMeta) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("sample: %w", err)
	}
	layers := map[string]*imaging.Image{"original": imgs.Original, "overlay": imgs.Overlay, "piece": imgs.Piece}
	for name, im := range layers {
		if im == nil {
			continue
		}
		if err := imaging.SavePNG(filepath.Join(dir, name+".png"), im); err != nil {
			return fmt.Errorf("sample: %s: %w", name, err)
		}
	}
	if imgs.Original != nil {
		meta.Width, meta.Height = imgs.Original.Width, imgs.Original.Height
	}
	out, err := yaml.Marshal(meta)
	if err != nil {
		return fmt.Errorf("sample: meta: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, sampleMetaFile), out, 0o644)
}

// LoadSample reads a sample directory. original and overlay are required, piece
// and meta.yaml are optional.
func LoadSample(dir string) (*Sample, error) {
	s := &Sample{Dir: dir}
	var err error
	if s.Images.Original, err = loadLayer(dir, "original"); err != nil {
		return nil, err
	}
	if s.Images.Overlay, err = loadLayer(dir, "overlay"); err != nil {
		return nil, err
	}
	if s.Images.Piece, err = loadLayer(dir, "piece"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	raw, err := os.ReadFile(filepath.Join(dir, sampleMetaFile))
	switch {
	case err == nil:
		var meta SampleMeta
		if err := yaml.Unmarshal(raw, &meta); err != nil {
			return nil, fmt.Errorf("sample %s: meta: %w", dir, err)
		}
		s.Meta = &meta
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("sample %s: %w", dir, err)
	}
	return s, nil
}

func loadLayer(dir, name string) (*imaging.Image, error) {
	for _, ext := range sampleExtensions {
		im, err := imaging.Load(filepath.Join(dir, name+ext))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("sample %s: %w", dir, err)
		}
		return im, nil
	}
	return nil, fmt.Errorf("sample %s: no %s layer: %w", dir, name, fs.ErrNotExist)
}

// FindSamples returns every directory under roots that holds an original layer,
// sorted.
func FindSamples(roots ...string) ([]string, error) {
	seen := map[string]bool{}
	var dirs []string
	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() || seen[path] {
				return nil
			}
			for _, ext := range sampleExtensions {
				if _, err := os.Stat(filepath.Join(path, "original"+ext)); err == nil {
					seen[path] = true
					dirs = append(dirs, path)
					return filepath.SkipDir
				}
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("find samples in %s: %w", root, err)
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

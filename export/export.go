// Package export materializes a project into a YOLO training dataset:
// shuffled train/val/test splits with images/ and labels/ directories,
// a classes file, a dataset descriptor and an unlabeled/ pool for
// images that never got annotations.
package export

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-annotate/annotations"
	"github.com/nvr-ai/go-annotate/colors"
	"github.com/nvr-ai/go-annotate/images"
	"github.com/nvr-ai/go-annotate/project"
	"github.com/nvr-ai/go-annotate/render"
)

// Options configures an export run.
type Options struct {
	// Seed fixes the shuffle for reproducible splits; zero shuffles
	// differently every run.
	Seed int64
	// Previews additionally writes annotated JPEG copies under
	// previews/.
	Previews bool
	Logger   *zap.Logger
}

// Summary is the per-split outcome of an export.
type Summary struct {
	Train     int
	Val       int
	Test      int
	Unlabeled int
	Failed    int
}

// Exporter writes datasets from a project store.
type Exporter struct {
	store  *project.Store
	opts   Options
	logger *zap.Logger
}

// New returns an exporter over store.
func New(store *project.Store, opts Options) *Exporter {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{
		store:  store,
		opts:   opts,
		logger: logger.Named("export"),
	}
}

// descriptor is the dataset.yaml shape ultralytics-style trainers read.
type descriptor struct {
	Train string   `yaml:"train"`
	Val   string   `yaml:"val"`
	Test  string   `yaml:"test"`
	NC    int      `yaml:"nc"`
	Names []string `yaml:"names"`
}

// Export validates ratios, splits the labeled images and writes the
// dataset under the project's output directory. Individual image
// failures are logged and counted, not fatal; nothing is written when
// validation fails.
func (e *Exporter) Export(ctx context.Context, ratios Ratios) (Summary, error) {
	if err := ratios.Validate(); err != nil {
		return Summary{}, err
	}
	outDir := e.store.OutputDir()
	if outDir == "" {
		return Summary{}, fmt.Errorf("project has no output directory")
	}

	runID := uuid.NewString()
	logger := e.logger.With(zap.String("run_id", runID))

	snap := e.store.Snapshot()

	classIndex := make(map[string]int, len(snap.ClassNames))
	for i, name := range snap.ClassNames {
		classIndex[name] = i
	}

	var labeled, unlabeled []string
	for _, path := range snap.ImagePaths {
		if len(snap.Annotations[path]) > 0 {
			labeled = append(labeled, path)
		} else {
			unlabeled = append(unlabeled, path)
		}
	}

	seed := e.opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(labeled), func(i, j int) {
		labeled[i], labeled[j] = labeled[j], labeled[i]
	})

	trainN, valN, _ := ratios.counts(len(labeled))

	var summary Summary
	splits := []struct {
		name  string
		paths []string
		count *int
	}{
		{"train", labeled[:trainN], &summary.Train},
		{"val", labeled[trainN : trainN+valN], &summary.Val},
		{"test", labeled[trainN+valN:], &summary.Test},
	}

	for _, split := range splits {
		for _, dir := range []string{
			filepath.Join(outDir, split.name, "images"),
			filepath.Join(outDir, split.name, "labels"),
		} {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return summary, fmt.Errorf("create %s: %w", dir, err)
			}
		}
	}
	unlabeledDir := filepath.Join(outDir, "unlabeled")
	if err := os.MkdirAll(unlabeledDir, 0o755); err != nil {
		return summary, fmt.Errorf("create %s: %w", unlabeledDir, err)
	}
	previewsDir := filepath.Join(outDir, "previews")
	if e.opts.Previews {
		if err := os.MkdirAll(previewsDir, 0o755); err != nil {
			return summary, fmt.Errorf("create %s: %w", previewsDir, err)
		}
	}

	logger.Info("export started",
		zap.String("output", outDir),
		zap.Int("labeled", len(labeled)),
		zap.Int("unlabeled", len(unlabeled)),
		zap.Int64("seed", seed))

	colorFor := func(name string) (colors.RGB, bool) {
		idx, ok := classIndex[name]
		if !ok || idx >= len(snap.ClassColors) {
			return colors.RGB{}, false
		}
		return snap.ClassColors[idx], true
	}

	for _, split := range splits {
		splitDir := filepath.Join(outDir, split.name)
		for _, src := range split.paths {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			anns := snap.Annotations[src]
			if err := e.exportLabeled(logger, src, splitDir, anns, classIndex); err != nil {
				logger.Warn("image export failed",
					zap.String("path", src),
					zap.String("split", split.name),
					zap.Error(err))
				summary.Failed++
				continue
			}
			if e.opts.Previews {
				dst := filepath.Join(previewsDir, stem(src)+"_annotated.jpg")
				if err := render.Annotate(src, anns, colorFor, dst); err != nil {
					logger.Warn("preview failed", zap.String("path", src), zap.Error(err))
				}
			}
			*split.count++
		}
	}

	for _, src := range unlabeled {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if err := copyFile(src, filepath.Join(unlabeledDir, filepath.Base(src))); err != nil {
			logger.Warn("unlabeled copy failed", zap.String("path", src), zap.Error(err))
			summary.Failed++
			continue
		}
		summary.Unlabeled++
	}

	if err := e.writeClasses(outDir, snap.ClassNames); err != nil {
		return summary, err
	}
	if err := e.writeDescriptor(outDir, snap.ClassNames); err != nil {
		return summary, err
	}

	logger.Info("export complete",
		zap.Int("train", summary.Train),
		zap.Int("val", summary.Val),
		zap.Int("test", summary.Test),
		zap.Int("unlabeled", summary.Unlabeled),
		zap.Int("failed", summary.Failed))
	return summary, nil
}

// exportLabeled copies one image into the split and writes its label
// file. Class ids come from the current taxonomy; annotations whose
// class is no longer part of it are left out of the label file.
func (e *Exporter) exportLabeled(logger *zap.Logger, src, splitDir string, anns []annotations.Annotation, classIndex map[string]int) error {
	w, h, err := images.OrientedDimensions(src)
	if err != nil {
		return fmt.Errorf("image dimensions: %w", err)
	}

	if err := copyFile(src, filepath.Join(splitDir, "images", filepath.Base(src))); err != nil {
		return err
	}

	var sb strings.Builder
	for _, ann := range anns {
		id, ok := classIndex[ann.ClassName]
		if !ok {
			logger.Warn("annotation class not in taxonomy, skipping line",
				zap.String("path", src),
				zap.String("class", ann.ClassName))
			continue
		}
		sb.WriteString(annotations.YOLOLine(id, ann.Box, w, h))
		sb.WriteByte('\n')
	}

	labelPath := filepath.Join(splitDir, "labels", stem(src)+".txt")
	if err := os.WriteFile(labelPath, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("write labels: %w", err)
	}
	return nil
}

func (e *Exporter) writeClasses(outDir string, names []string) error {
	var sb strings.Builder
	for _, name := range names {
		sb.WriteString(name)
		sb.WriteByte('\n')
	}
	path := filepath.Join(outDir, "classes.txt")
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("write classes: %w", err)
	}
	return nil
}

func (e *Exporter) writeDescriptor(outDir string, names []string) error {
	data, err := yaml.Marshal(descriptor{
		Train: filepath.Join("train", "images"),
		Val:   filepath.Join("val", "images"),
		Test:  filepath.Join("test", "images"),
		NC:    len(names),
		Names: names,
	})
	if err != nil {
		return fmt.Errorf("encode descriptor: %w", err)
	}
	path := filepath.Join(outDir, "dataset.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write descriptor: %w", err)
	}
	return nil
}

// stem is the file name without directory or extension.
func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy to %s: %w", dst, err)
	}
	return out.Close()
}

// Command annotate drives a detection model over a directory of images
// to bootstrap a labeled dataset, then exports YOLO train/val/test
// splits. All the logic lives in the library packages; this binary only
// wires flags, config and signals together.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nvr-ai/go-annotate/batch"
	"github.com/nvr-ai/go-annotate/config"
	"github.com/nvr-ai/go-annotate/detect"
	"github.com/nvr-ai/go-annotate/export"
	"github.com/nvr-ai/go-annotate/project"

	// Linked backends register themselves with detect.Open.
	_ "github.com/nvr-ai/go-annotate/detect/dnn"
	_ "github.com/nvr-ai/go-annotate/detect/onnx"
)

func main() {
	var (
		configPath   string
		projectPath  string
		imageDir     string
		modelPath    string
		outputDir    string
		backend      string
		runBatch     bool
		exportRatios string
		previews     bool
	)
	flag.StringVar(&configPath, "config", "", "YAML config file (optional)")
	flag.StringVar(&projectPath, "project", "", "project file, created when missing")
	flag.StringVar(&imageDir, "images", "", "directory of images to annotate")
	flag.StringVar(&modelPath, "model", "", "ONNX model file")
	flag.StringVar(&outputDir, "out", "", "dataset output directory")
	flag.StringVar(&backend, "backend", "", "detector backend: onnxruntime or opencv-dnn")
	flag.BoolVar(&runBatch, "run", false, "run batch annotation from the stored cursor")
	flag.StringVar(&exportRatios, "export", "", "export with train,val,test percentages, e.g. 70,15,15")
	flag.BoolVar(&previews, "previews", false, "also write annotated preview JPEGs on export")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	applyFlagOverrides(cfg, projectPath, imageDir, modelPath, outputDir, backend, previews)

	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger, runBatch, exportRatios); err != nil {
		logger.Error("annotate failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func applyFlagOverrides(cfg *config.Config, projectPath, imageDir, modelPath, outputDir, backend string, previews bool) {
	if projectPath != "" {
		cfg.ProjectPath = projectPath
	}
	if imageDir != "" {
		cfg.ImageDir = imageDir
	}
	if modelPath != "" {
		cfg.ModelPath = modelPath
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if backend != "" {
		cfg.Backend = backend
	}
	if previews {
		cfg.Previews = true
	}
}

func buildLogger(level string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

func run(cfg *config.Config, logger *zap.Logger, runBatch bool, exportRatios string) error {
	store, err := openProject(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if runBatch {
		if err := annotateAll(ctx, cfg, store, logger); err != nil {
			return err
		}
	}

	if exportRatios != "" {
		if err := exportDataset(ctx, cfg, store, logger, exportRatios); err != nil {
			return err
		}
	}

	if !runBatch && exportRatios == "" {
		printStatus(store)
	}
	return nil
}

// openProject loads the project file when it exists, otherwise starts a
// new one there. Flag and config overrides are applied before the first
// save so a fresh project is immediately usable.
func openProject(cfg *config.Config, logger *zap.Logger) (*project.Store, error) {
	var store *project.Store
	if cfg.ProjectPath != "" {
		if _, err := os.Stat(cfg.ProjectPath); err == nil {
			loaded, err := project.Load(cfg.ProjectPath, logger)
			if err != nil {
				return nil, err
			}
			store = loaded
		}
	}
	if store == nil {
		name := "annotate"
		if cfg.ProjectPath != "" {
			base := filepath.Base(cfg.ProjectPath)
			name = base[:len(base)-len(filepath.Ext(base))]
		}
		store = project.New(name, logger)
	}

	if cfg.ImageDir != "" && cfg.ImageDir != store.ImageDir() {
		count, err := store.SetImageDir(cfg.ImageDir)
		if err != nil {
			return nil, err
		}
		fmt.Printf("found %d images in %s\n", count, cfg.ImageDir)
	}
	if cfg.ModelPath != "" {
		store.SetModelPath(cfg.ModelPath)
	}
	if cfg.OutputDir != "" {
		store.SetOutputDir(cfg.OutputDir)
	}

	if cfg.ProjectPath != "" {
		if err := store.SaveTo(cfg.ProjectPath); err != nil {
			return nil, err
		}
	}
	return store, nil
}

func annotateAll(ctx context.Context, cfg *config.Config, store *project.Store, logger *zap.Logger) error {
	det, err := detect.Open(store.ModelPath(), detect.Options{
		Backend:             detect.Backend(cfg.Backend),
		ConfidenceThreshold: cfg.Confidence,
		NMSThreshold:        cfg.NMS,
		InputSize:           cfg.InputSize,
		Logger:              logger,
	})
	if err != nil {
		return fmt.Errorf("open detector: %w", err)
	}
	defer det.Close()

	proc := batch.New(store, batch.Options{
		CheckpointEvery: cfg.CheckpointEvery,
		Logger:          logger,
	})
	events, err := proc.Run(ctx, det)
	if err != nil {
		return err
	}

	for ev := range events {
		switch ev.Kind {
		case batch.EventStarted:
			fmt.Printf("annotating %d images (resuming at %d)\n", ev.Total, ev.Index)
		case batch.EventImageDone:
			fmt.Printf("[%5.1f%%] %s: %d detections\n", ev.Progress, filepath.Base(ev.Path), ev.Detections)
		case batch.EventImageSkipped:
			fmt.Printf("[%5.1f%%] %s: already labeled\n", ev.Progress, filepath.Base(ev.Path))
		case batch.EventImageFailed:
			fmt.Printf("[%5.1f%%] %s: failed: %v\n", ev.Progress, filepath.Base(ev.Path), ev.Err)
		case batch.EventFinished:
			fmt.Printf("✅ run complete: %d/%d images labeled\n", ev.Labeled, ev.Total)
		case batch.EventCancelled:
			fmt.Printf("run stopped at image %d/%d, %d labeled; rerun to resume\n", ev.Index, ev.Total, ev.Labeled)
		}
	}
	proc.Wait()
	return nil
}

func exportDataset(ctx context.Context, cfg *config.Config, store *project.Store, logger *zap.Logger, ratioArg string) error {
	ratios, err := export.ParseRatios(ratioArg)
	if err != nil {
		return err
	}

	summary, err := export.New(store, export.Options{
		Seed:     cfg.Seed,
		Previews: cfg.Previews,
		Logger:   logger,
	}).Export(ctx, ratios)
	if err != nil {
		return err
	}

	fmt.Printf("✅ exported to %s: train %d, val %d, test %d, unlabeled %d",
		store.OutputDir(), summary.Train, summary.Val, summary.Test, summary.Unlabeled)
	if summary.Failed > 0 {
		fmt.Printf(" (%d failed)", summary.Failed)
	}
	fmt.Println()
	return nil
}

func printStatus(store *project.Store) {
	total := store.TotalImages()
	labeled := store.LabeledCount()
	fmt.Printf("project %q\n", store.Name())
	fmt.Printf("  images:  %d in %s\n", total, store.ImageDir())
	fmt.Printf("  model:   %s\n", store.ModelPath())
	fmt.Printf("  labeled: %d (%d remaining from cursor %d)\n", labeled, store.Remaining(), store.Cursor())
	if !store.ReadyToProcess() {
		fmt.Println("  not ready to run: set -images and -model first")
	}
}

// Command preview writes annotated copies of every labeled image in a
// project, so detection quality can be spot-checked mid-run without
// exporting the dataset.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nvr-ai/go-annotate/project"
	"github.com/nvr-ai/go-annotate/render"
)

func main() {
	var (
		projectPath string
		outDir      string
		logLevel    string
	)
	flag.StringVar(&projectPath, "project", "", "project file to read")
	flag.StringVar(&outDir, "out", "previews", "directory for annotated copies")
	flag.StringVar(&logLevel, "log-level", "info", "zap log level")
	flag.Parse()

	logger, err := buildLogger(logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(logger, projectPath, outDir); err != nil {
		logger.Error("preview failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
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

func run(logger *zap.Logger, projectPath, outDir string) error {
	if projectPath == "" {
		return fmt.Errorf("-project is required")
	}

	store, err := project.Load(projectPath, logger)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	written := 0
	for _, path := range store.ImagePaths() {
		anns, ok := store.Annotations(path)
		if !ok || len(anns) == 0 {
			continue
		}

		base := filepath.Base(path)
		stem := base[:len(base)-len(filepath.Ext(base))]
		dst := filepath.Join(outDir, stem+"_annotated.jpg")
		if err := render.Annotate(path, anns, store.ColorFor, dst); err != nil {
			logger.Warn("preview failed", zap.String("path", path), zap.Error(err))
			continue
		}
		written++
	}

	fmt.Printf("✅ wrote %d previews to %s\n", written, outDir)
	return nil
}

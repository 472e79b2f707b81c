// Package onnx runs YOLO-family ONNX models through the ONNX Runtime C
// library. Register-on-import: linking this package makes the
// "onnxruntime" backend available to detect.Open.
package onnx

import (
	"context"
	"image"
	"os"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-annotate/detect"
)

func init() {
	detect.RegisterBackend(detect.BackendONNXRuntime, func(modelPath string, opts detect.Options) (detect.Detector, error) {
		return New(modelPath, opts)
	})
}

// EnvSharedLib overrides the ONNX Runtime shared library location.
const EnvSharedLib = "ONNXRUNTIME_LIB"

var (
	initOnce sync.Once
	initErr  error
)

// sharedLibPath returns the runtime library path for this platform, with
// the environment override taking precedence.
func sharedLibPath() string {
	if p := os.Getenv(EnvSharedLib); p != "" {
		return p
	}
	switch runtime.GOOS {
	case "windows":
		return "third_party/onnxruntime.dll"
	case "darwin":
		return "third_party/libonnxruntime.dylib"
	default:
		if runtime.GOARCH == "arm64" {
			return "third_party/onnxruntime_arm64.so"
		}
		return "third_party/onnxruntime.so"
	}
}

// initEnvironment brings up the process-wide ORT environment once. It
// stays up for the life of the process; sessions come and go.
func initEnvironment() error {
	initOnce.Do(func() {
		libPath := sharedLibPath()
		if _, err := os.Stat(libPath); err != nil {
			initErr = errors.Wrapf(err, "onnxruntime library not found at %s (set %s)", libPath, EnvSharedLib)
			return
		}
		ort.SetSharedLibraryPath(libPath)
		if err := ort.InitializeEnvironment(); err != nil {
			initErr = errors.Wrap(err, "initialize onnxruntime environment")
		}
	})
	return initErr
}

// Session is a loaded ONNX model with pre-allocated input and output
// tensors, reused across Infer calls. It implements detect.Detector.
type Session struct {
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	opts    detect.Options
	closed  bool
	logger  *zap.Logger
}

// New loads the model at modelPath into an ONNX Runtime session. The
// model is expected to take a [1,3,S,S] image tensor named "images" and
// produce the YOLOv8-style [1, 4+classes, candidates] tensor named
// "output0".
func New(modelPath string, opts detect.Options) (*Session, error) {
	opts = opts.WithDefaults()
	logger := opts.Logger.Named("onnx")

	if _, err := os.Stat(modelPath); err != nil {
		return nil, errors.Wrap(err, "model file")
	}
	if err := initEnvironment(); err != nil {
		return nil, err
	}

	size := opts.InputSize
	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(size), int64(size)))
	if err != nil {
		return nil, errors.Wrap(err, "create input tensor")
	}

	candidates := candidateCount(size)
	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(4+len(detect.COCONames)), int64(candidates)))
	if err != nil {
		inputTensor.Destroy()
		return nil, errors.Wrap(err, "create output tensor")
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, errors.Wrap(err, "create session options")
	}
	defer options.Destroy()

	options.SetIntraOpNumThreads(4)
	options.SetInterOpNumThreads(2)
	options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended)

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{"images"},
		[]string{"output0"},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		options,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, errors.Wrapf(err, "create session for %s", modelPath)
	}

	logger.Info("onnx session ready",
		zap.String("model", modelPath),
		zap.Int("input_size", size),
		zap.Int("candidates", candidates))

	return &Session{
		session: session,
		input:   inputTensor,
		output:  outputTensor,
		opts:    opts,
		logger:  logger,
	}, nil
}

// candidateCount is the number of anchor-free candidates a YOLOv8 head
// emits for a square input: one per cell at strides 8, 16 and 32.
func candidateCount(inputSize int) int {
	s8 := inputSize / 8
	s16 := inputSize / 16
	s32 := inputSize / 32
	return s8*s8 + s16*s16 + s32*s32
}

// Infer runs the model over img and returns detections in img's pixel
// space, confidence filtered and NMS suppressed.
func (s *Session) Infer(ctx context.Context, img image.Image) ([]detect.Detection, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errors.New("session closed")
	}

	lb := letterbox(img, s.opts.InputSize, s.input.GetData())

	if err := s.session.Run(); err != nil {
		return nil, errors.Wrap(err, "run inference")
	}

	dets := decodeOutput(s.output.GetData(), lb, s.opts)
	s.logger.Debug("inference complete",
		zap.Int("width", lb.originalW),
		zap.Int("height", lb.originalH),
		zap.Int("detections", len(dets)))
	return dets, nil
}

// Close destroys the session and its tensors. Safe to call twice.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	s.session.Destroy()
	s.input.Destroy()
	s.output.Destroy()
	s.logger.Debug("onnx session closed")
	return nil
}

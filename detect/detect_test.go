package detect

import (
	"context"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsWithDefaults(t *testing.T) {
	opts := Options{}.WithDefaults()

	assert.Equal(t, BackendONNXRuntime, opts.Backend, "empty backend falls back to onnxruntime")
	assert.InDelta(t, 0.25, opts.ConfidenceThreshold, 1e-6)
	assert.InDelta(t, 0.45, opts.NMSThreshold, 1e-6)
	assert.Equal(t, 640, opts.InputSize)
	require.NotNil(t, opts.Logger, "a nop logger stands in when none is given")
}

func TestOptionsWithDefaultsKeepsSetValues(t *testing.T) {
	opts := Options{
		Backend:             BackendOpenCVDNN,
		ConfidenceThreshold: 0.5,
		NMSThreshold:        0.3,
		InputSize:           416,
	}.WithDefaults()

	assert.Equal(t, BackendOpenCVDNN, opts.Backend)
	assert.InDelta(t, 0.5, opts.ConfidenceThreshold, 1e-6)
	assert.InDelta(t, 0.3, opts.NMSThreshold, 1e-6)
	assert.Equal(t, 416, opts.InputSize)
}

type nopDetector struct{}

func (nopDetector) Infer(context.Context, image.Image) ([]Detection, error) { return nil, nil }
func (nopDetector) Close() error                                            { return nil }

func TestOpenDispatchesToRegisteredBackend(t *testing.T) {
	var gotPath string
	var gotOpts Options
	RegisterBackend("fake", func(modelPath string, opts Options) (Detector, error) {
		gotPath = modelPath
		gotOpts = opts
		return nopDetector{}, nil
	})

	det, err := Open("/models/m.onnx", Options{Backend: "fake", InputSize: 320})
	require.NoError(t, err)
	defer det.Close()

	assert.Equal(t, "/models/m.onnx", gotPath)
	assert.Equal(t, 320, gotOpts.InputSize)
	assert.InDelta(t, 0.25, gotOpts.ConfidenceThreshold, 1e-6,
		"options are defaulted before they reach the backend")
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open("/models/m.onnx", Options{Backend: "tensorrt"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tensorrt", "the error names the missing backend")
}

func TestClassName(t *testing.T) {
	assert.Equal(t, "person", ClassName(0))
	assert.Equal(t, "dog", ClassName(16))
	assert.Equal(t, "toothbrush", ClassName(79))
	assert.Equal(t, "unknown_80", ClassName(80))
	assert.Equal(t, "unknown_-1", ClassName(-1))
	assert.Len(t, COCONames, 80)
}

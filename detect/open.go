package detect

import (
	"fmt"
	"sort"
	"sync"
)

// Backend identifies a model runtime.
type Backend string

const (
	// BackendONNXRuntime runs models through the ONNX Runtime C library.
	BackendONNXRuntime Backend = "onnxruntime"
	// BackendOpenCVDNN runs models through OpenCV's DNN module.
	BackendOpenCVDNN Backend = "opencv-dnn"
)

// OpenFunc constructs a detector session for a model file.
type OpenFunc func(modelPath string, opts Options) (Detector, error)

var (
	backendsMu sync.RWMutex
	backends   = map[Backend]OpenFunc{}
)

// RegisterBackend makes a runtime available to Open. Backend packages
// call this from init; importing a backend for side effects is enough
// to register it.
func RegisterBackend(b Backend, open OpenFunc) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[b] = open
}

// Open creates a detector session for modelPath using the backend named
// in opts (ONNX Runtime when unset). The backend's package must be
// linked into the binary.
func Open(modelPath string, opts Options) (Detector, error) {
	opts = opts.WithDefaults()

	backendsMu.RLock()
	open, ok := backends[opts.Backend]
	backendsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("detector backend %q not linked in (registered: %v)",
			opts.Backend, registeredBackends())
	}
	return open(modelPath, opts)
}

func registeredBackends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()

	names := make([]string, 0, len(backends))
	for b := range backends {
		names = append(names, string(b))
	}
	sort.Strings(names)
	return names
}

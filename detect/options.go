package detect

import "go.uber.org/zap"

// Default thresholds for YOLO-family models.
const (
	DefaultConfidenceThreshold float32 = 0.25
	DefaultNMSThreshold        float32 = 0.45
	DefaultInputSize                   = 640
)

// Options configure a detector session. The zero value selects the
// defaults.
type Options struct {
	// Backend picks the runtime. Empty selects BackendONNXRuntime.
	Backend Backend
	// ConfidenceThreshold drops detections scoring below it.
	ConfidenceThreshold float32
	// NMSThreshold is the IoU above which overlapping boxes are
	// suppressed.
	NMSThreshold float32
	// InputSize is the square model input resolution.
	InputSize int
	// Logger receives session lifecycle and per-inference debug logs.
	Logger *zap.Logger
}

// WithDefaults fills unset fields. Backends call this first.
func (o Options) WithDefaults() Options {
	if o.Backend == "" {
		o.Backend = BackendONNXRuntime
	}
	if o.ConfidenceThreshold <= 0 {
		o.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if o.NMSThreshold <= 0 {
		o.NMSThreshold = DefaultNMSThreshold
	}
	if o.InputSize <= 0 {
		o.InputSize = DefaultInputSize
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

package batch

// EventKind discriminates the events a run emits.
type EventKind int

const (
	// EventStarted opens a run; Index is the resume position.
	EventStarted EventKind = iota
	// EventImageDone reports one freshly annotated image.
	EventImageDone
	// EventImageSkipped reports an image that already had a record.
	EventImageSkipped
	// EventImageFailed reports a single-image failure; the run goes on.
	EventImageFailed
	// EventCheckpoint reports a periodic project save.
	EventCheckpoint
	// EventPaused and EventResumed bracket a suspension.
	EventPaused
	EventResumed
	// EventFinished closes a run that reached the end of the list.
	EventFinished
	// EventCancelled closes a run halted by Stop or context cancellation.
	EventCancelled
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventImageDone:
		return "image_done"
	case EventImageSkipped:
		return "image_skipped"
	case EventImageFailed:
		return "image_failed"
	case EventCheckpoint:
		return "checkpoint"
	case EventPaused:
		return "paused"
	case EventResumed:
		return "resumed"
	case EventFinished:
		return "finished"
	case EventCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Event is one progress message from a run. Fields beyond Kind, RunID,
// Total and Progress are populated where they apply: Path/Detections on
// image events, Err on failures, Labeled on the closing event.
type Event struct {
	Kind       EventKind
	RunID      string
	Path       string
	Index      int
	Total      int
	Detections int
	Labeled    int
	Err        error
	Progress   float64
}

// progress is percent complete after consuming `done` of `total`
// images.
func progress(done, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(done) / float64(total) * 100
}

// Package batch drives a detector over a project's image list on a
// background worker goroutine. The caller steers the run through
// Pause/Resume/Stop and watches typed events on a channel; annotation
// results only ever land in the project store between images, so a
// paused or halted run never loses committed work.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-annotate/annotations"
	"github.com/nvr-ai/go-annotate/detect"
	"github.com/nvr-ai/go-annotate/images"
	"github.com/nvr-ai/go-annotate/project"
)

// ErrAlreadyRunning is returned by Run while a previous run is active.
var ErrAlreadyRunning = errors.New("batch run already in progress")

// DefaultCheckpointEvery is how many consumed images trigger a project
// save.
const DefaultCheckpointEvery = 10

// State of the processor between API calls.
type State int

const (
	StateIdle State = iota
	StateRunning
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	default:
		return "idle"
	}
}

type command int

const (
	cmdPause command = iota
	cmdResume
)

// Options configures a Processor.
type Options struct {
	// CheckpointEvery overrides the save cadence; zero means the
	// default.
	CheckpointEvery int
	Logger          *zap.Logger
}

// Processor owns at most one run at a time over a project store.
type Processor struct {
	store           *project.Store
	logger          *zap.Logger
	checkpointEvery int

	mu       sync.Mutex
	state    State
	cmds     chan command
	stop     chan struct{}
	stopOnce *sync.Once
	done     chan struct{}
}

// New returns an idle processor over store.
func New(store *project.Store, opts Options) *Processor {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	every := opts.CheckpointEvery
	if every <= 0 {
		every = DefaultCheckpointEvery
	}
	return &Processor{
		store:           store,
		logger:          logger.Named("batch"),
		checkpointEvery: every,
	}
}

// State reports the current processor state.
func (p *Processor) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Processor) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// Run starts a background run from the stored cursor and returns its
// event channel. The channel is closed when the run ends; callers must
// drain it. Only one run may be active.
func (p *Processor) Run(ctx context.Context, det detect.Detector) (<-chan Event, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateIdle {
		return nil, ErrAlreadyRunning
	}
	if !p.store.ReadyToProcess() {
		return nil, fmt.Errorf("project not ready: image dir, model path and at least one image required")
	}

	p.state = StateRunning
	p.cmds = make(chan command, 16)
	p.stop = make(chan struct{})
	p.stopOnce = new(sync.Once)
	p.done = make(chan struct{})

	events := make(chan Event, 16)
	go p.run(ctx, det, events)
	return events, nil
}

// Pause asks the run to suspend before the next image. No-op unless
// running.
func (p *Processor) Pause() {
	p.sendCommand(cmdPause, StateRunning)
}

// Resume continues a paused run at the image it stopped before.
func (p *Processor) Resume() {
	p.sendCommand(cmdResume, StatePaused)
}

func (p *Processor) sendCommand(cmd command, want State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != want {
		return
	}
	select {
	case p.cmds <- cmd:
	default:
	}
}

// Stop halts the run after the in-flight image, persisting the cursor.
// Safe to call at any time, including while paused.
func (p *Processor) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateIdle {
		return
	}
	p.stopOnce.Do(func() { close(p.stop) })
}

// Wait blocks until the current run's worker has exited. Returns
// immediately when no run was started.
func (p *Processor) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

type control int

const (
	controlProceed control = iota
	controlStop
)

func (p *Processor) run(ctx context.Context, det detect.Detector, events chan<- Event) {
	defer close(events)

	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	defer close(done)
	defer p.setState(StateIdle)

	runID := uuid.NewString()
	logger := p.logger.With(zap.String("run_id", runID))

	paths := p.store.ImagePaths()
	total := len(paths)
	start := p.store.Cursor()

	logger.Info("run started",
		zap.Int("total", total),
		zap.Int("cursor", start),
		zap.Int("labeled", p.store.LabeledCount()))
	events <- Event{Kind: EventStarted, RunID: runID, Index: start, Total: total, Progress: progress(start, total)}

	cancelled := false
	sinceCheckpoint := 0
	var stats runStats

	i := start
	for ; i < total; i++ {
		if p.waitControl(ctx, events, runID, i, total) == controlStop {
			cancelled = true
			break
		}

		path := paths[i]
		if p.store.HasRecord(path) {
			stats.skip()
			p.store.SetCursor(i + 1)
			events <- Event{Kind: EventImageSkipped, RunID: runID, Path: path, Index: i, Total: total, Progress: progress(i+1, total)}
		} else {
			began := time.Now()
			anns, err := p.annotateImage(ctx, det, path)
			if ctx.Err() != nil {
				// Aborted mid-inference: leave the cursor on this
				// image so the next run retries it.
				cancelled = true
				break
			}
			stats.observe(time.Since(began), len(anns), err)
			p.store.SetCursor(i + 1)
			if err != nil {
				logger.Warn("image failed", zap.String("path", path), zap.Error(err))
				events <- Event{Kind: EventImageFailed, RunID: runID, Path: path, Index: i, Total: total, Err: err, Progress: progress(i+1, total)}
			} else {
				p.store.UpsertAnnotations(path, anns)
				events <- Event{Kind: EventImageDone, RunID: runID, Path: path, Index: i, Total: total, Detections: len(anns), Progress: progress(i+1, total)}
			}
		}

		sinceCheckpoint++
		if sinceCheckpoint >= p.checkpointEvery && i < total-1 {
			sinceCheckpoint = 0
			if err := p.saveQuiet(logger); err == nil {
				events <- Event{Kind: EventCheckpoint, RunID: runID, Index: i, Total: total, Progress: progress(i+1, total)}
			}
		}
	}

	// The closing save covers both the final image and a mid-run halt.
	_ = p.saveQuiet(logger)

	labeled := p.store.LabeledCount()
	if cancelled {
		logger.Info("run cancelled", append(stats.fields(), zap.Int("cursor", p.store.Cursor()), zap.Int("labeled", labeled))...)
		events <- Event{Kind: EventCancelled, RunID: runID, Index: i, Total: total, Labeled: labeled, Progress: progress(p.store.Cursor(), total)}
		return
	}
	logger.Info("run finished", append(stats.fields(), zap.Int("total", total), zap.Int("labeled", labeled))...)
	events <- Event{Kind: EventFinished, RunID: runID, Index: total, Total: total, Labeled: labeled, Progress: 100}
}

// waitControl drains pending commands between images, blocking for as
// long as the run is paused.
func (p *Processor) waitControl(ctx context.Context, events chan<- Event, runID string, i, total int) control {
	for {
		select {
		case <-ctx.Done():
			return controlStop
		case <-p.stop:
			return controlStop
		case cmd := <-p.cmds:
			if cmd != cmdPause {
				continue
			}
			p.setState(StatePaused)
			events <- Event{Kind: EventPaused, RunID: runID, Index: i, Total: total, Progress: progress(i, total)}
			if p.pauseWait(ctx) == controlStop {
				return controlStop
			}
			p.setState(StateRunning)
			events <- Event{Kind: EventResumed, RunID: runID, Index: i, Total: total, Progress: progress(i, total)}
		default:
			return controlProceed
		}
	}
}

// pauseWait blocks until the run is resumed or halted.
func (p *Processor) pauseWait(ctx context.Context) control {
	for {
		select {
		case <-ctx.Done():
			return controlStop
		case <-p.stop:
			return controlStop
		case cmd := <-p.cmds:
			if cmd == cmdResume {
				return controlProceed
			}
		}
	}
}

// annotateImage loads one image, runs the detector and keeps only
// detections whose class is part of the project taxonomy. The model's
// class id is stored as-is; the name is what the rest of the system
// trusts. The load applies EXIF orientation so box coordinates agree
// with what viewers and the preview renderer show.
func (p *Processor) annotateImage(ctx context.Context, det detect.Detector, path string) ([]annotations.Annotation, error) {
	img, err := images.LoadOriented(path)
	if err != nil {
		return nil, fmt.Errorf("load image: %w", err)
	}

	dets, err := det.Infer(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("infer: %w", err)
	}

	anns := make([]annotations.Annotation, 0, len(dets))
	for _, d := range dets {
		if _, ok := p.store.ClassIndex(d.ClassName); !ok {
			continue
		}
		anns = append(anns, annotations.Annotation{
			Box:        annotations.FromRect(d.Box),
			Confidence: d.Confidence,
			ClassID:    d.ClassID,
			ClassName:  d.ClassName,
		})
	}
	return anns, nil
}

// saveQuiet persists the project, tolerating stores that have no file
// path yet.
func (p *Processor) saveQuiet(logger *zap.Logger) error {
	err := p.store.Save()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, project.ErrNoPath):
		logger.Debug("skipping save, project has no path")
		return err
	default:
		logger.Warn("project save failed", zap.Error(err))
		return err
	}
}

package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/nvr-ai/go-annotate/annotations"
	"github.com/nvr-ai/go-annotate/colors"
	"github.com/nvr-ai/go-annotate/images"
)

// ErrNoPath is returned by Save when the project has never been given a
// file path.
var ErrNoPath = errors.New("project has no file path")

// Store guards a Project document for concurrent readers and the single
// batch writer. Every annotation mutation goes through the store so the
// record map and the labeled-paths cache always move together; the
// underlying map is never handed out.
type Store struct {
	mu      sync.RWMutex
	doc     Project
	path    string
	labeled map[string]struct{}
	logger  *zap.Logger
}

// New creates an in-memory project with the default taxonomy. The store
// has no file path until SaveTo or Load.
func New(name string, logger *zap.Logger) *Store {
	names := make([]string, len(DefaultClassNames))
	copy(names, DefaultClassNames)

	return &Store{
		doc: Project{
			Name:        name,
			ClassNames:  names,
			ClassColors: colors.Palette(len(names)),
			Annotations: map[string][]annotations.Annotation{},
		},
		labeled: map[string]struct{}{},
		logger:  namedLogger(logger),
	}
}

// Load reads a project document from path. Failures (missing file,
// malformed JSON) leave no partially constructed store behind. After
// decoding, internal invariants are repaired: the color palette is
// realigned with the class list, records pointing at image files that no
// longer exist are dropped, the cursor is clamped into range and the
// labeled cache is rebuilt.
func Load(path string, logger *zap.Logger) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read project: %w", err)
	}

	var doc Project
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse project %s: %w", path, err)
	}

	s := &Store{
		doc:     doc,
		path:    path,
		labeled: map[string]struct{}{},
		logger:  namedLogger(logger),
	}
	s.repair()
	return s, nil
}

func namedLogger(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger.Named("project")
}

// repair restores invariants after a load. Self-healing, never fails.
func (s *Store) repair() {
	if s.doc.Annotations == nil {
		s.doc.Annotations = map[string][]annotations.Annotation{}
	}

	if len(s.doc.ClassColors) != len(s.doc.ClassNames) {
		s.logger.Warn("class colors out of sync with class names, regenerating",
			zap.Int("names", len(s.doc.ClassNames)),
			zap.Int("colors", len(s.doc.ClassColors)))
		s.doc.ClassColors = colors.Palette(len(s.doc.ClassNames))
	}

	dropped := 0
	for path, anns := range s.doc.Annotations {
		if _, err := os.Stat(path); err != nil {
			delete(s.doc.Annotations, path)
			dropped++
			continue
		}
		if anns == nil {
			s.doc.Annotations[path] = []annotations.Annotation{}
			continue
		}
		if len(anns) > 0 {
			s.labeled[path] = struct{}{}
		}
	}
	if dropped > 0 {
		s.logger.Info("dropped annotation records for missing images", zap.Int("count", dropped))
	}

	if s.doc.LastProcessedIndex < 0 {
		s.doc.LastProcessedIndex = 0
	}
	if s.doc.LastProcessedIndex > len(s.doc.ImagePaths) {
		s.doc.LastProcessedIndex = len(s.doc.ImagePaths)
	}
}

// Save writes the document to its known path. Returns ErrNoPath when the
// project was never saved or loaded; callers that checkpoint
// opportunistically treat that as a no-op.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return ErrNoPath
	}
	return s.writeLocked(s.path)
}

// SaveTo writes the document to path and remembers it for future saves.
func (s *Store) SaveTo(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeLocked(path); err != nil {
		return err
	}
	s.path = path
	return nil
}

// writeLocked serializes under the held lock, via a temp file in the
// target directory renamed over the destination. A failed write never
// corrupts a previously valid project file.
func (s *Store) writeLocked(path string) error {
	data, err := json.MarshalIndent(&s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode project: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".project-*.json")
	if err != nil {
		return fmt.Errorf("create temp project file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write project: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("flush project: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace project file: %w", err)
	}
	return nil
}

// Path returns the project file path, empty until saved or loaded.
func (s *Store) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}

// Name returns the project name.
func (s *Store) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Name
}

// ImageDir returns the configured image directory.
func (s *Store) ImageDir() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.ImageDir
}

// ModelPath returns the configured detector model reference.
func (s *Store) ModelPath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.ModelPath
}

// OutputDir returns the configured export directory.
func (s *Store) OutputDir() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.OutputDir
}

// SetModelPath records the detector model reference.
func (s *Store) SetModelPath(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.ModelPath = path
}

// SetOutputDir records the export directory.
func (s *Store) SetOutputDir(dir string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.OutputDir = dir
}

// SetImageDir scans dir for image files, replaces the project's path
// list with the sorted result and resets the resume cursor. Existing
// annotation records survive, so re-pointing at the same directory keeps
// all prior work and the batch skip logic makes a re-run cheap.
func (s *Store) SetImageDir(dir string) (int, error) {
	paths, err := images.List(dir)
	if err != nil {
		return 0, fmt.Errorf("scan image dir: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.ImageDir = dir
	s.doc.ImagePaths = paths
	s.doc.LastProcessedIndex = 0
	return len(paths), nil
}

// ImagePaths returns a copy of the ordered image list.
func (s *Store) ImagePaths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.doc.ImagePaths...)
}

// TotalImages returns the size of the image list.
func (s *Store) TotalImages() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.doc.ImagePaths)
}

// LabeledCount returns how many paths currently carry at least one
// annotation. O(1) via the labeled cache.
func (s *Store) LabeledCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.labeled)
}

// Cursor returns the resume index: the next image the batch pipeline
// will consume.
func (s *Store) Cursor() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.LastProcessedIndex
}

// SetCursor stores the resume index, clamped into [0, total].
func (s *Store) SetCursor(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < 0 {
		i = 0
	}
	if i > len(s.doc.ImagePaths) {
		i = len(s.doc.ImagePaths)
	}
	s.doc.LastProcessedIndex = i
}

// Remaining returns how many images the batch pipeline has not yet
// passed, never negative.
func (s *Store) Remaining() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rem := len(s.doc.ImagePaths) - s.doc.LastProcessedIndex
	if rem < 0 {
		return 0
	}
	return rem
}

// ReadyToProcess reports whether batch processing can start: an image
// directory and a model are configured and the image list is non-empty.
func (s *Store) ReadyToProcess() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.ImageDir != "" && s.doc.ModelPath != "" && len(s.doc.ImagePaths) > 0
}

// UpsertAnnotations replaces the record for path and refreshes the
// labeled cache. The resume cursor is untouched. An empty record still
// marks the path processed ("nothing found"), which the batch skip logic
// and the exporter's empty label files rely on.
func (s *Store) UpsertAnnotations(path string, anns []annotations.Annotation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := annotations.Clone(anns)
	if record == nil {
		record = []annotations.Annotation{}
	}
	s.doc.Annotations[path] = record

	if len(record) > 0 {
		s.labeled[path] = struct{}{}
	} else {
		delete(s.labeled, path)
	}
}

// RemoveAnnotations deletes the record for path entirely, returning the
// image to the unprocessed state.
func (s *Store) RemoveAnnotations(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.doc.Annotations, path)
	delete(s.labeled, path)
}

// Annotations returns a copy of the record for path. ok reports whether
// a record exists at all; a processed image with no detections yields an
// empty slice and true.
func (s *Store) Annotations(path string) ([]annotations.Annotation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	anns, ok := s.doc.Annotations[path]
	if !ok {
		return nil, false
	}
	return annotations.Clone(anns), true
}

// HasRecord reports whether path has been processed.
func (s *Store) HasRecord(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.doc.Annotations[path]
	return ok
}

// IsLabeled reports whether path currently has at least one annotation.
func (s *Store) IsLabeled(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.labeled[path]
	return ok
}

// Snapshot returns a deep copy of the document for readers that need a
// consistent view across fields, such as the exporter.
func (s *Store) Snapshot() Project {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp := s.doc
	cp.ClassNames = append([]string(nil), s.doc.ClassNames...)
	cp.ClassColors = append([]colors.RGB(nil), s.doc.ClassColors...)
	cp.ImagePaths = append([]string(nil), s.doc.ImagePaths...)
	cp.Annotations = make(map[string][]annotations.Annotation, len(s.doc.Annotations))
	for p, anns := range s.doc.Annotations {
		cp.Annotations[p] = annotations.Clone(anns)
	}
	return cp
}

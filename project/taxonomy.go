package project

import (
	"errors"
	"fmt"

	"github.com/nvr-ai/go-annotate/colors"
)

// ErrUnknownClass reports a label name that is not part of the current
// taxonomy.
var ErrUnknownClass = errors.New("class not in taxonomy")

// ClassNames returns a copy of the ordered label list.
func (s *Store) ClassNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.doc.ClassNames...)
}

// ClassColors returns a copy of the palette, index aligned with
// ClassNames.
func (s *Store) ClassColors() []colors.RGB {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]colors.RGB(nil), s.doc.ClassColors...)
}

// ClassCount returns the number of labels.
func (s *Store) ClassCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.doc.ClassNames)
}

// ClassIndex returns the taxonomy index for a label name. This is the
// authoritative id mapping; stored annotation ids are only hints.
func (s *Store) ClassIndex(name string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return classIndex(s.doc.ClassNames, name)
}

// ColorFor returns the palette color for a label name.
func (s *Store) ColorFor(name string) (colors.RGB, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := classIndex(s.doc.ClassNames, name)
	if !ok {
		return colors.RGB{}, false
	}
	return s.doc.ClassColors[i], true
}

// AddClass appends a new label and regenerates the whole palette so hues
// stay evenly spread.
func (s *Store) AddClass(name string) error {
	if name == "" {
		return fmt.Errorf("class name must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := classIndex(s.doc.ClassNames, name); exists {
		return fmt.Errorf("class %q already exists", name)
	}
	s.doc.ClassNames = append(s.doc.ClassNames, name)
	s.doc.ClassColors = colors.Palette(len(s.doc.ClassNames))
	return nil
}

// RenameClass renames a label in place. The palette keeps its slots
// (the count is unchanged), and stored annotations carrying the old name
// are rewritten so no record silently orphans.
func (s *Store) RenameClass(oldName, newName string) error {
	if newName == "" {
		return fmt.Errorf("class name must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := classIndex(s.doc.ClassNames, oldName)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownClass, oldName)
	}
	if _, exists := classIndex(s.doc.ClassNames, newName); exists {
		return fmt.Errorf("class %q already exists", newName)
	}

	s.doc.ClassNames[idx] = newName
	for _, anns := range s.doc.Annotations {
		for i := range anns {
			if anns[i].ClassName == oldName {
				anns[i].ClassName = newName
			}
		}
	}
	return nil
}

// RemoveClass deletes a label and regenerates the palette. Stored
// annotations of that class are dropped, ids of the survivors are
// recomputed against the shrunk taxonomy and the labeled cache is kept
// in step for records that just became empty.
func (s *Store) RemoveClass(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := classIndex(s.doc.ClassNames, name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownClass, name)
	}

	s.doc.ClassNames = append(s.doc.ClassNames[:idx], s.doc.ClassNames[idx+1:]...)
	s.doc.ClassColors = colors.Palette(len(s.doc.ClassNames))

	for path, anns := range s.doc.Annotations {
		kept := anns[:0]
		for _, a := range anns {
			if a.ClassName == name {
				continue
			}
			if i, ok := classIndex(s.doc.ClassNames, a.ClassName); ok {
				a.ClassID = i
			}
			kept = append(kept, a)
		}
		s.doc.Annotations[path] = kept

		if len(kept) > 0 {
			s.labeled[path] = struct{}{}
		} else {
			delete(s.labeled, path)
		}
	}
	return nil
}

// SetClassColor overrides the palette entry for one label. The override
// survives until the next operation that regenerates the palette.
func (s *Store) SetClassColor(name string, c colors.RGB) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := classIndex(s.doc.ClassNames, name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownClass, name)
	}
	s.doc.ClassColors[idx] = c
	return nil
}

// RegenerateColors rebuilds the palette for the current class count,
// discarding any manual overrides.
func (s *Store) RegenerateColors() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.ClassColors = colors.Palette(len(s.doc.ClassNames))
}

func classIndex(names []string, name string) (int, bool) {
	for i, n := range names {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

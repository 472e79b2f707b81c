// Package editor holds the interaction engine behind an annotation
// canvas: display-to-image coordinate mapping, hit-testing of boxes and
// their resize handles, and drag-based box mutation. It owns the
// annotation list for one displayed image at a time and pushes a commit
// to its update sink only when a gesture completes.
package editor

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/nvr-ai/go-annotate/annotations"
)

// Handle identifies which part of a box a drag grabs.
type Handle int

const (
	HandleNone Handle = iota
	HandleTopLeft
	HandleTopRight
	HandleBottomLeft
	HandleBottomRight
	HandleCenter
)

func (h Handle) String() string {
	switch h {
	case HandleTopLeft:
		return "top_left"
	case HandleTopRight:
		return "top_right"
	case HandleBottomLeft:
		return "bottom_left"
	case HandleBottomRight:
		return "bottom_right"
	case HandleCenter:
		return "center"
	default:
		return "none"
	}
}

// HandleTolerance is the half-size, in display pixels, of the square
// region around a corner that counts as grabbing its handle.
const HandleTolerance float32 = 10

// UpdateFunc receives the full annotation list each time the editor
// commits a change.
type UpdateFunc func([]annotations.Annotation)

// Editor is the mutable state behind one displayed image. It is not
// safe for concurrent use; a UI drives it from a single goroutine.
type Editor struct {
	view     Viewport
	anns     []annotations.Annotation
	taxonomy []string
	selected int
	drag     dragState
	onUpdate UpdateFunc
}

type dragState struct {
	active  bool
	handle  Handle
	lastPos Point
	moved   bool
}

// New returns an editor committing changes to onUpdate. A nil onUpdate
// discards commits.
func New(onUpdate UpdateFunc) *Editor {
	if onUpdate == nil {
		onUpdate = func([]annotations.Annotation) {}
	}
	return &Editor{
		selected: -1,
		onUpdate: onUpdate,
	}
}

// SetViewport installs the current display mapping. Called on image
// switch and on surface resize.
func (e *Editor) SetViewport(v Viewport) {
	e.view = v
}

// Viewport returns the current display mapping.
func (e *Editor) Viewport() Viewport { return e.view }

// SetTaxonomy installs the class list used to resolve ids on class
// changes.
func (e *Editor) SetTaxonomy(names []string) {
	e.taxonomy = append([]string(nil), names...)
}

// SetAnnotations replaces the working list wholesale, as happens when
// the displayed image changes. Selection and any in-flight drag are
// discarded.
func (e *Editor) SetAnnotations(anns []annotations.Annotation) {
	e.anns = annotations.Clone(anns)
	e.selected = -1
	e.drag = dragState{}
}

// Annotations returns a copy of the working list.
func (e *Editor) Annotations() []annotations.Annotation {
	return annotations.Clone(e.anns)
}

// Selected reports the selected annotation index, if any.
func (e *Editor) Selected() (int, bool) {
	if e.selected < 0 || e.selected >= len(e.anns) {
		return -1, false
	}
	return e.selected, true
}

// ClearSelection drops the selection without touching the list.
func (e *Editor) ClearSelection() {
	e.selected = -1
}

// HitTest finds what a display point lands on. Annotations are tested
// in list order and the first match wins; for each box the four corner
// handles are tried before the interior. A miss returns (-1,
// HandleNone).
func (e *Editor) HitTest(p Point) (int, Handle) {
	for i, ann := range e.anns {
		tl, br := e.view.BoxToDisplay(ann.Box)

		corners := [4]struct {
			pt     Point
			handle Handle
		}{
			{Point{tl.X, tl.Y}, HandleTopLeft},
			{Point{br.X, tl.Y}, HandleTopRight},
			{Point{tl.X, br.Y}, HandleBottomLeft},
			{Point{br.X, br.Y}, HandleBottomRight},
		}
		for _, c := range corners {
			if math32.Abs(p.X-c.pt.X) <= HandleTolerance && math32.Abs(p.Y-c.pt.Y) <= HandleTolerance {
				return i, c.handle
			}
		}

		if p.X >= tl.X && p.X <= br.X && p.Y >= tl.Y && p.Y <= br.Y {
			return i, HandleCenter
		}
	}
	return -1, HandleNone
}

// Press is the mouse-down entry point: it hit-tests p, updates the
// selection accordingly and begins a drag when something was grabbed. A
// miss clears the selection.
func (e *Editor) Press(p Point) (int, Handle) {
	idx, handle := e.HitTest(p)
	if idx < 0 {
		e.selected = -1
		e.drag = dragState{}
		return idx, handle
	}
	// Index and handle come from our own hit test, the error path is
	// unreachable.
	_ = e.BeginDrag(idx, handle, p)
	return idx, handle
}

// BeginDrag starts a drag of annotation index with the given handle,
// anchored at display point p. It selects the annotation.
func (e *Editor) BeginDrag(index int, handle Handle, p Point) error {
	if index < 0 || index >= len(e.anns) {
		return fmt.Errorf("annotation index %d out of range (have %d)", index, len(e.anns))
	}
	if handle == HandleNone {
		return fmt.Errorf("cannot drag without a handle")
	}
	e.selected = index
	e.drag = dragState{
		active:  true,
		handle:  handle,
		lastPos: p,
	}
	return nil
}

// Dragging reports whether a drag gesture is in flight.
func (e *Editor) Dragging() bool { return e.drag.active }

// UpdateDrag moves the dragged box to follow display point p. A center
// grab translates the whole box by the pointer delta; a corner grab
// pins the opposite corner and moves only the grabbed one. The result
// is clamped to the image, reordered and kept at least 1px wide and
// tall. The change stays local until EndDrag commits it.
func (e *Editor) UpdateDrag(p Point) {
	if !e.drag.active {
		return
	}
	idx, ok := e.Selected()
	if !ok {
		e.drag = dragState{}
		return
	}

	box := e.anns[idx].Box
	switch e.drag.handle {
	case HandleCenter:
		delta := e.view.ToImage(p)
		last := e.view.ToImage(e.drag.lastPos)
		box = box.Translate(delta.X-last.X, delta.Y-last.Y)
	case HandleTopLeft:
		ip := e.view.ToImage(p)
		box.X1, box.Y1 = ip.X, ip.Y
	case HandleTopRight:
		ip := e.view.ToImage(p)
		box.X2, box.Y1 = ip.X, ip.Y
	case HandleBottomLeft:
		ip := e.view.ToImage(p)
		box.X1, box.Y2 = ip.X, ip.Y
	case HandleBottomRight:
		ip := e.view.ToImage(p)
		box.X2, box.Y2 = ip.X, ip.Y
	default:
		return
	}

	e.anns[idx].Box = box.Sanitized(e.view.ImageW, e.view.ImageH)
	e.drag.lastPos = p
	e.drag.moved = true
}

// EndDrag finishes the gesture. If any UpdateDrag landed since
// BeginDrag, the whole annotation list is committed once; a pure
// click-release commits nothing.
func (e *Editor) EndDrag() {
	moved := e.drag.moved
	e.drag = dragState{}
	if moved {
		e.onUpdate(annotations.Clone(e.anns))
	}
}

// ModifyClass reassigns annotation index to the named class, with the
// id recomputed from the current taxonomy, and commits.
func (e *Editor) ModifyClass(index int, name string) error {
	if index < 0 || index >= len(e.anns) {
		return fmt.Errorf("annotation index %d out of range (have %d)", index, len(e.anns))
	}
	classID := -1
	for i, n := range e.taxonomy {
		if n == name {
			classID = i
			break
		}
	}
	if classID < 0 {
		return fmt.Errorf("class %q not found", name)
	}
	e.anns[index].ClassName = name
	e.anns[index].ClassID = classID
	e.onUpdate(annotations.Clone(e.anns))
	return nil
}

// Delete removes annotation index, clears the selection and commits.
func (e *Editor) Delete(index int) error {
	if index < 0 || index >= len(e.anns) {
		return fmt.Errorf("annotation index %d out of range (have %d)", index, len(e.anns))
	}
	e.anns = append(e.anns[:index], e.anns[index+1:]...)
	e.selected = -1
	e.drag = dragState{}
	e.onUpdate(annotations.Clone(e.anns))
	return nil
}

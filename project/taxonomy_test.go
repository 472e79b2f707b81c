package project

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-annotate/annotations"
	"github.com/nvr-ai/go-annotate/colors"
)

func TestAddClass(t *testing.T) {
	s := New("tax", nil)
	base := s.ClassCount()

	require.NoError(t, s.AddClass("drone"))
	assert.Equal(t, base+1, s.ClassCount())
	assert.Len(t, s.ClassColors(), base+1, "palette must follow the class list")

	idx, ok := s.ClassIndex("drone")
	assert.True(t, ok)
	assert.Equal(t, base, idx, "new classes append at the end")

	assert.Error(t, s.AddClass("drone"), "duplicates are rejected")
	assert.Error(t, s.AddClass(""), "empty names are rejected")
}

func TestRenameClassRewritesAnnotations(t *testing.T) {
	s := New("tax", nil)
	s.UpsertAnnotations("/img/a.jpg", []annotations.Annotation{
		{Box: annotations.NewBox(0, 0, 10, 10), ClassID: 2, ClassName: "car"},
		{Box: annotations.NewBox(5, 5, 20, 20), ClassID: 0, ClassName: "person"},
	})

	require.NoError(t, s.RenameClass("car", "automobile"))

	names := s.ClassNames()
	assert.Equal(t, "automobile", names[2], "rename keeps the taxonomy slot")
	assert.Len(t, s.ClassColors(), len(names))

	got, _ := s.Annotations("/img/a.jpg")
	assert.Equal(t, "automobile", got[0].ClassName, "stored annotations must follow the rename")
	assert.Equal(t, "person", got[1].ClassName)

	assert.ErrorIs(t, s.RenameClass("nope", "x"), ErrUnknownClass)
	assert.Error(t, s.RenameClass("person", "automobile"), "target name collision is rejected")
}

func TestRemoveClass(t *testing.T) {
	s := New("tax", nil)
	s.UpsertAnnotations("/img/a.jpg", []annotations.Annotation{
		{Box: annotations.NewBox(0, 0, 10, 10), ClassID: 0, ClassName: "person"},
		{Box: annotations.NewBox(5, 5, 20, 20), ClassID: 2, ClassName: "car"},
	})
	s.UpsertAnnotations("/img/b.jpg", []annotations.Annotation{
		{Box: annotations.NewBox(1, 1, 9, 9), ClassID: 0, ClassName: "person"},
	})

	require.NoError(t, s.RemoveClass("person"))

	names := s.ClassNames()
	assert.NotContains(t, names, "person")
	assert.Len(t, s.ClassColors(), len(names), "palette regenerated for the shrunk taxonomy")

	// a.jpg keeps its car, with the id recomputed against the new order.
	got, ok := s.Annotations("/img/a.jpg")
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "car", got[0].ClassName)
	wantIdx, _ := s.ClassIndex("car")
	assert.Equal(t, wantIdx, got[0].ClassID)

	// b.jpg lost its only annotation: still processed, no longer labeled.
	empty, ok := s.Annotations("/img/b.jpg")
	require.True(t, ok)
	assert.Empty(t, empty)
	assert.False(t, s.IsLabeled("/img/b.jpg"))
	assert.Equal(t, 1, s.LabeledCount())

	assert.ErrorIs(t, s.RemoveClass("person"), ErrUnknownClass, "removing twice fails")
}

func TestSetClassColor(t *testing.T) {
	s := New("tax", nil)
	custom := colors.RGB{12, 34, 56}

	require.NoError(t, s.SetClassColor("car", custom))
	got, ok := s.ColorFor("car")
	require.True(t, ok)
	assert.Equal(t, custom, got)

	// Regeneration discards the override.
	s.RegenerateColors()
	got, _ = s.ColorFor("car")
	assert.NotEqual(t, custom, got)

	assert.ErrorIs(t, s.SetClassColor("nope", custom), ErrUnknownClass)
}

func TestColorForUnknownClass(t *testing.T) {
	s := New("tax", nil)
	_, ok := s.ColorFor("unicorn")
	assert.False(t, ok)
	_, ok = s.ClassIndex("unicorn")
	assert.False(t, ok)
}

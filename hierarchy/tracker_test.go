package hierarchy

import (
	"testing"

	"github.com/rpgo/rpgo/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_Nesting(t *testing.T) {
	root := &model.Suite{}
	outer := root.AddSuite("outer")
	inner := outer.AddSuite("inner")

	tr := New()
	assert.False(t, tr.Open())
	_, ok := tr.Parent()
	assert.False(t, ok)

	tr.Enter(outer, "id-outer")
	parent, ok := tr.Parent()
	require.True(t, ok)
	assert.Equal(t, "id-outer", parent)

	tr.Enter(inner, "id-inner")
	assert.Equal(t, 2, tr.Depth())
	parent, ok = tr.Parent()
	require.True(t, ok)
	assert.Equal(t, "id-inner", parent)

	id, ok := tr.Exit(inner)
	require.True(t, ok)
	assert.Equal(t, "id-inner", id)
	parent, _ = tr.Parent()
	assert.Equal(t, "id-outer", parent)

	_, ok = tr.suites[inner]
	assert.False(t, ok, "closed suite mapping must be discarded")

	id, ok = tr.Exit(outer)
	require.True(t, ok)
	assert.Equal(t, "id-outer", id)
	assert.False(t, tr.Open())
}

func TestTracker_DuplicateTitles(t *testing.T) {
	root := &model.Suite{}
	a := root.AddSuite("same")
	b := a.AddSuite("same")

	tr := New()
	tr.Enter(a, "id-a")
	tr.Enter(b, "id-b")

	id, ok := tr.Exit(b)
	require.True(t, ok)
	assert.Equal(t, "id-b", id)

	id, ok = tr.Exit(a)
	require.True(t, ok)
	assert.Equal(t, "id-a", id)
}

func TestTracker_SuiteWithoutID(t *testing.T) {
	root := &model.Suite{}
	outer := root.AddSuite("outer")
	broken := outer.AddSuite("broken")

	tr := New()
	tr.Enter(outer, "id-outer")
	tr.Enter(broken, "")

	assert.True(t, tr.Open())
	assert.Equal(t, 2, tr.Depth())
	parent, ok := tr.Parent()
	assert.False(t, ok)
	assert.Empty(t, parent)

	id, ok := tr.Exit(broken)
	assert.False(t, ok)
	assert.Empty(t, id)

	parent, ok = tr.Parent()
	require.True(t, ok)
	assert.Equal(t, "id-outer", parent)
}

func TestTracker_Tests(t *testing.T) {
	s := &model.Suite{Title: "s"}
	t1 := s.AddTest("t")
	t2 := s.AddTest("t")

	tr := New()
	tr.RecordTest(t1, "id-1")
	tr.RecordTest(t2, "id-2")
	tr.RecordTest(s.AddTest("failed create"), "")

	id, ok := tr.TestID(t1)
	require.True(t, ok)
	assert.Equal(t, "id-1", id)
	id, ok = tr.TestID(t2)
	require.True(t, ok)
	assert.Equal(t, "id-2", id)

	tr.ForgetTest(t1)
	_, ok = tr.TestID(t1)
	assert.False(t, ok)
	assert.Len(t, tr.tests, 1)
}

func TestTracker_ExitOnEmptyStack(t *testing.T) {
	tr := New()
	_, ok := tr.Exit(&model.Suite{Title: "never entered"})
	assert.False(t, ok)
	assert.Equal(t, 0, tr.Depth())
}

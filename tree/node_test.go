package tree

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_BuildsNavigableTree(t *testing.T) {
	t.Parallel()

	text := "The cat"
	the := NewLeaf("DT", Span{0, 3}, "The")
	cat := NewLeaf("NN", Span{4, 7}, "cat")
	np := NewInternal("NP", the, cat)
	assert.Equal(t, Span{0, 7}, np.Span())
	assert.Nil(t, np.Tree())
	assert.Equal(t, "", np.Text())
	assert.Equal(t, "cat", cat.Text())

	tr, err := New(text, np)
	require.NoError(t, err)
	assert.Same(t, np, tr.Root())
	assert.Same(t, tr, cat.Tree())
	assert.Same(t, np, cat.Parent())
	assert.True(t, np.IsRoot())
	assert.False(t, cat.IsRoot())
	assert.Equal(t, 3, tr.Size())
	assert.Equal(t, "The cat", np.Text())
	assert.Equal(t, "(NP (DT The) (NN cat))", tr.String())
	assert.Equal(t, []*Node{np, the, cat}, tr.Nodes())
	assert.Equal(t, []*Node{the, cat}, tr.Leaves())
}

func TestNew_ZeroWidthSiblingsAllowed(t *testing.T) {
	t.Parallel()

	text := "go"
	root := NewInternal("S",
		NewLeaf("-NONE-", Span{0, 0}, "*PRO*"),
		NewLeaf("VB", Span{0, 2}, "go"),
		NewLeaf("-NONE-", Span{2, 2}, "*T*"),
		NewLeaf("-NONE-", Span{2, 2}, "*U*"),
	)
	tr, err := New(text, root)
	require.NoError(t, err)
	assert.Equal(t, Span{0, 2}, tr.Span())
	assert.True(t, root.Child(0).IsEmptyElement())
	assert.False(t, root.Child(1).IsEmptyElement())
}

func TestNew_RejectsInvalidTrees(t *testing.T) {
	t.Parallel()

	shared := NewLeaf("-NONE-", Span{0, 0}, "*")

	attachedLeaf := NewLeaf("NN", Span{0, 3}, "cat")
	_, err := New("cat", NewInternal("NP", attachedLeaf))
	require.NoError(t, err)

	tests := []struct {
		name string
		text string
		root func() *Node
		want error
	}{
		{
			name: "nil root",
			text: "",
			root: func() *Node { return nil },
			want: ErrNilNode,
		},
		{
			name: "overlapping siblings",
			text: "The cat",
			root: func() *Node {
				return NewInternal("NP",
					NewLeaf("DT", Span{0, 5}, "The c"),
					NewLeaf("NN", Span{4, 7}, "cat"))
			},
			want: ErrOverlap,
		},
		{
			name: "siblings out of order",
			text: "The cat",
			root: func() *Node {
				return NewInternal("NP",
					NewLeaf("NN", Span{4, 7}, "cat"),
					NewLeaf("DT", Span{0, 3}, "The"))
			},
			want: ErrOverlap,
		},
		{
			name: "identical sibling spans",
			text: "cat",
			root: func() *Node {
				return NewInternal("NP",
					NewLeaf("NN", Span{0, 3}, "cat"),
					NewLeaf("NN", Span{0, 3}, "cat"))
			},
			want: ErrOverlap,
		},
		{
			name: "node shared twice",
			text: "cat",
			root: func() *Node { return NewInternal("NP", NewInternal("X", shared), NewInternal("Y", shared)) },
			want: ErrSharedNode,
		},
		{
			name: "node owned by another tree",
			text: "cat",
			root: func() *Node { return NewInternal("S", attachedLeaf) },
			want: ErrSharedNode,
		},
		{
			name: "leaf beyond text",
			text: "cat",
			root: func() *Node { return NewInternal("NP", NewLeaf("NN", Span{0, 4}, "cats")) },
			want: ErrSpanOutOfBounds,
		},
		{
			name: "empty constituent",
			text: "cat",
			root: func() *Node { return NewInternal("S", NewInternal("VP"), NewLeaf("NN", Span{0, 3}, "cat")) },
			want: ErrEmptyConstituent,
		},
		{
			name: "inverted span",
			text: "cat",
			root: func() *Node { return NewLeaf("NN", Span{3, 1}, "cat") },
			want: ErrInvalidSpan,
		},
		{
			name: "nil child",
			text: "cat",
			root: func() *Node { return NewInternal("NP", NewLeaf("NN", Span{0, 3}, "cat"), nil) },
			want: ErrNilNode,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(tt.text, tt.root())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			var pe *PreconditionError
			assert.True(t, errors.As(err, &pe))
		})
	}
}

func TestNew_FailureLeavesNodesDetached(t *testing.T) {
	t.Parallel()

	leaf := NewLeaf("NN", Span{0, 3}, "cat")
	_, err := New("cat", NewInternal("NP", NewInternal("VP"), leaf))
	require.Error(t, err)
	assert.Nil(t, leaf.Tree())
	assert.Nil(t, leaf.Parent())

	tr, err := New("cat", NewInternal("NP", leaf))
	require.NoError(t, err)
	assert.Same(t, tr, leaf.Tree())
}

func TestWalk_DepthAndPruning(t *testing.T) {
	t.Parallel()
	n := parseMice(t)

	var labels []string
	var depths []int
	Walk(n.root, func(c *Node, d int) bool {
		labels = append(labels, c.Label())
		depths = append(depths, d)
		return c.Label() != "NP"
	})
	assert.Equal(t, []string{"S", "NP", "VP", "VBD", "NP", "."}, labels)
	assert.Equal(t, []int{0, 1, 1, 2, 2, 1}, depths)
}

func TestNode_ChildrenIsACopy(t *testing.T) {
	t.Parallel()
	n := parseMice(t)

	kids := n.root.Children()
	kids[0] = nil
	assert.Same(t, n.np, n.root.Child(0))
	assert.Equal(t, 3, n.root.NumChildren())
	assert.Equal(t, "(NP (NNS mice))", n.np2.String())
}

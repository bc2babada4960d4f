package tree

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	miceText    = "The cat chased mice."
	miceTree    = "(S (NP (DT The) (NN cat)) (VP (VBD chased) (NP (NNS mice))) (. .))"
	mouseText   = "The cat chased the mouse."
	mouseTree   = "(S (NP (DT The) (NN cat)) (VP (VBD chased) (NP (DT the) (NN mouse))) (. .))"
	skunkTree   = "(S (NP (DT The) (NN skunk)) (VP (VBD thought) (S (NP (DT the) (NN stump)) (VP (VBD stunk)))) (. .))"
)

func mustParseAligned(t testing.TB, text, bracketed string) *Tree {
	t.Helper()
	tr, err := ParseAligned(text, bracketed)
	require.NoError(t, err)
	return tr
}

// miceNodes names every node of miceTree.
type miceNodes struct {
	root, np, vp, period, the, cat, chased, np2, mice *Node
}

func parseMice(t testing.TB) miceNodes {
	t.Helper()
	tr := mustParseAligned(t, miceText, miceTree)
	root := tr.Root()
	np, vp, period := root.Child(0), root.Child(1), root.Child(2)
	np2 := vp.Child(1)
	return miceNodes{
		root:   root,
		np:     np,
		vp:     vp,
		period: period,
		the:    np.Child(0),
		cat:    np.Child(1),
		chased: vp.Child(0),
		np2:    np2,
		mice:   np2.Child(0),
	}
}

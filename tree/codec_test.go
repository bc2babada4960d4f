package tree

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_RoundTripCanonical(t *testing.T) {
	t.Parallel()

	for _, s := range []string{
		miceTree,
		mouseTree,
		skunkTree,
		"(NP (DT a) (JJ big) (NN dog))",
		"(X (Y (Z word)))",
		"(FRAG (NP (NN help)) (. !))",
	} {
		t.Run(s, func(t *testing.T) {
			t.Parallel()
			tr, err := Parse(s)
			require.NoError(t, err)
			assert.Equal(t, s, Encode(tr.Root()))
			assert.Equal(t, s, tr.String())
		})
	}
}

func TestEncode_RoundTripNormalizesWhitespace(t *testing.T) {
	t.Parallel()

	messy := "(S\n  (NP (DT The)\t(NN cat))\n  (VP  (VBD chased)\n      (NP (NNS mice)))\n  (. .) )"
	first, err := ParseAligned(miceText, messy)
	require.NoError(t, err)

	encoded := Encode(first.Root())
	assert.Equal(t, miceTree, encoded)

	second, err := ParseAligned(miceText, encoded)
	require.NoError(t, err)

	firstNodes, secondNodes := first.Nodes(), second.Nodes()
	require.Len(t, secondNodes, len(firstNodes))
	for i := range firstNodes {
		assert.Equal(t, firstNodes[i].Label(), secondNodes[i].Label())
		assert.Equal(t, firstNodes[i].Span(), secondNodes[i].Span())
		assert.Equal(t, firstNodes[i].IsLeaf(), secondNodes[i].IsLeaf())
	}
}

func TestEncodeTo(t *testing.T) {
	t.Parallel()

	tr, err := Parse("(S (NP (-NONE- *-1)) (VP (TO to) (VB go)))")
	require.NoError(t, err)
	bracket := func(s string) string { return "<" + s + ">" }

	tests := []struct {
		name   string
		format Format
		want   string
	}{
		{
			name: "zero value matches Encode",
			want: tr.String(),
		},
		{
			name:   "indented",
			format: Format{Indent: "  "},
			want:   "(S\n  (NP (-NONE- *-1))\n  (VP (TO to) (VB go)))",
		},
		{
			name:   "decorated",
			format: Format{Label: bracket, Empty: func(s string) string { return "[" + s + "]" }},
			want:   "(<S> (<NP> (<-NONE-> [*-1])) (<VP> (<TO> to) (<VB> go)))",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b strings.Builder
			require.NoError(t, EncodeTo(&b, tr.Root(), tt.format))
			assert.Equal(t, tt.want, b.String())
		})
	}
}

func TestParseAligned_Spans(t *testing.T) {
	t.Parallel()
	n := parseMice(t)

	assert.Equal(t, Span{0, 20}, n.root.Span())
	assert.Equal(t, Span{0, 7}, n.np.Span())
	assert.Equal(t, Span{0, 3}, n.the.Span())
	assert.Equal(t, Span{4, 7}, n.cat.Span())
	assert.Equal(t, Span{8, 19}, n.vp.Span())
	assert.Equal(t, Span{15, 19}, n.np2.Span())
	assert.Equal(t, Span{15, 19}, n.mice.Span())
	assert.Equal(t, Span{19, 20}, n.period.Span())

	assert.Equal(t, "The cat chased mice.", n.root.Text())
	assert.Equal(t, "chased mice", n.vp.Text())
	assert.Equal(t, "NNS", n.mice.Label())
	assert.True(t, n.mice.IsLeaf())
	assert.False(t, n.np2.IsLeaf())
	assert.Equal(t, "mice", n.mice.Token())
	assert.Equal(t, 9, n.root.Tree().Size())
}

func TestParseAligned_RepeatedTokensGetIncreasingSpans(t *testing.T) {
	t.Parallel()

	tr := mustParseAligned(t, "the cat saw the dog",
		"(S (NP (DT the) (NN cat)) (VP (VBD saw) (NP (DT the) (NN dog))))")
	leaves := tr.Leaves()
	require.Len(t, leaves, 5)
	assert.Equal(t, Span{0, 3}, leaves[0].Span())
	assert.Equal(t, Span{12, 15}, leaves[3].Span())
	assert.Equal(t, "the", leaves[3].Text())
}

func TestParse_SynthesizesText(t *testing.T) {
	t.Parallel()

	tr, err := Parse(miceTree)
	require.NoError(t, err)
	assert.Equal(t, "The cat chased mice .", tr.Text())
	assert.Equal(t, Span{15, 19}, tr.Root().Child(1).Child(1).Span())
	assert.Equal(t, Span{0, 21}, tr.Span())
}

func TestParse_Escapes(t *testing.T) {
	t.Parallel()

	bracketed := "(S (NP (PRP He)) (PRN (-LRB- -LRB-) (FW sic) (-RRB- -RRB-)) (VP (VBD left)) (. .))"

	aligned := mustParseAligned(t, "He (sic) left.", bracketed)
	lrb, ok := SelectMatchingLeaf(aligned.Root(), Span{3, 4})
	require.True(t, ok)
	assert.Equal(t, "-LRB-", lrb.Label())
	assert.Equal(t, "(", lrb.Text())
	assert.Equal(t, "-LRB-", lrb.Token())
	assert.Equal(t, bracketed, Encode(aligned.Root()))

	synth, err := Parse(bracketed)
	require.NoError(t, err)
	assert.Equal(t, "He ( sic ) left .", synth.Text())
	assert.Equal(t, bracketed, Encode(synth.Root()))
}

func TestParse_SlashEscapes(t *testing.T) {
	t.Parallel()

	tr := mustParseAligned(t, "1/2 cup", `(NP (CD 1\/2) (NN cup))`)
	assert.Equal(t, Span{0, 3}, tr.Leaves()[0].Span())
	assert.Equal(t, `(NP (CD 1\/2) (NN cup))`, tr.String())
}

func TestParse_EmptyElements(t *testing.T) {
	t.Parallel()

	bracketed := "(SBARQ (WHNP (WP What)) (SQ (VBD did) (NP (PRP you)) (VP (VB see) (NP (-NONE- *T*-1)))) (. ?))"
	tr := mustParseAligned(t, "What did you see?", bracketed)

	var trace *Node
	for _, l := range tr.Leaves() {
		if l.IsEmptyElement() {
			trace = l
		}
	}
	require.NotNil(t, trace)
	assert.Equal(t, Span{16, 16}, trace.Span())
	assert.Equal(t, "", trace.Text())
	assert.Equal(t, "*T*-1", trace.Token())
	assert.Equal(t, bracketed, tr.String())

	_, ok := SelectMatchingLeaf(tr.Root(), trace.Span())
	assert.False(t, ok, "empty spans are not addressable")

	synth, err := Parse(bracketed)
	require.NoError(t, err)
	assert.Equal(t, "What did you see ?", synth.Text())
}

func TestParse_LeadingEmptyElements(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		text      string
		bracketed string
		query     Span
		wantLabel string
		wantText  string
		wantTrace Span
	}{
		{
			name:      "controlled subject",
			text:      "He wants to go",
			bracketed: "(S (NP-SBJ (PRP He)) (VP (VBZ wants) (S (NP-SBJ (-NONE- *-1)) (VP (TO to) (VB go)))))",
			query:     Span{9, 14},
			wantLabel: "S",
			wantText:  "to go",
			wantTrace: Span{9, 9},
		},
		{
			name:      "null complementizer",
			text:      "They said it rained.",
			bracketed: "(S (NP (PRP They)) (VP (VBD said) (SBAR (-NONE- 0) (S (NP (PRP it)) (VP (VBD rained))))) (. .))",
			query:     Span{10, 19},
			wantLabel: "SBAR",
			wantText:  "it rained",
			wantTrace: Span{10, 10},
		},
		{
			name:      "trace between tokens",
			text:      "What did you see there?",
			bracketed: "(SBARQ (WHNP (WP What)) (SQ (VBD did) (NP (PRP you)) (VP (VB see) (NP (-NONE- *T*-1)) (ADVP (RB there)))) (. ?))",
			query:     Span{13, 22},
			wantLabel: "VP",
			wantText:  "see there",
			wantTrace: Span{16, 16},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := mustParseAligned(t, tt.text, tt.bracketed)

			n, ok := SelectHighestCoveredNode(tr.Root(), tt.query)
			require.True(t, ok)
			assert.Equal(t, tt.wantLabel, n.Label())
			assert.Equal(t, tt.wantText, n.Text())

			idx := NewSpanIndex(tr)
			indexed, ok := idx.Highest(tt.query)
			require.True(t, ok)
			assert.Same(t, n, indexed)

			for _, l := range tr.Leaves() {
				if l.IsEmptyElement() {
					assert.Equal(t, tt.wantTrace, l.Span())
				}
			}
			assert.Equal(t, tt.bracketed, tr.String())
		})
	}
}

func TestParse_UnlabeledLeaves(t *testing.T) {
	t.Parallel()

	tr, err := Parse("(NP the (NN cat))")
	require.NoError(t, err)
	root := tr.Root()
	require.Equal(t, 2, root.NumChildren())
	assert.Equal(t, "", root.Child(0).Label())
	assert.True(t, root.Child(0).IsLeaf())
	assert.Equal(t, "(NP the (NN cat))", tr.String())

	bare, err := Parse("hello")
	require.NoError(t, err)
	assert.True(t, bare.Root().IsLeaf())
	assert.Equal(t, "hello", bare.String())
}

func TestParse_SyntaxErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		offset int
		msg    string
	}{
		{"missing close", "(S (NP (DT The)", 3, "missing ')'"},
		{"extra close", "(S (NP (DT The))))", 17, "unexpected ')'"},
		{"leading close", ")", 0, "unexpected ')'"},
		{"empty constituent", "(S )", 0, "no children"},
		{"missing label", "(S ((DT The)))", 4, "missing label"},
		{"missing label before close", "()", 1, "missing label"},
		{"empty input", "   ", 0, "no tree"},
		{"two trees", "(S (DT The)) (S (DT cat))", 13, "unexpected input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse(tt.input)
			require.Error(t, err)
			var se *SyntaxError
			require.True(t, errors.As(err, &se), "want *SyntaxError, got %T", err)
			assert.Equal(t, tt.offset, se.Offset)
			assert.Contains(t, se.Msg, tt.msg)
			assert.Contains(t, err.Error(), "offset")
		})
	}
}

func TestParseAligned_AlignmentError(t *testing.T) {
	t.Parallel()

	_, err := ParseAligned("The dog", "(NP (DT The) (NN cat))")
	var ae *AlignmentError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "cat", ae.Token)
	assert.Equal(t, 3, ae.Offset)
}

func TestParseForest(t *testing.T) {
	t.Parallel()

	bracketed := "(S (NP (DT The) (NN cat)) (VP (VBD sat)) (. .))\n(S (NP (DT The) (NN dog)) (VP (VBD ran)) (. .))\n"

	trees, err := ParseForest("The cat sat. The dog ran.", bracketed)
	require.NoError(t, err)
	require.Len(t, trees, 2)
	assert.Equal(t, Span{0, 12}, trees[0].Span())
	assert.Equal(t, Span{13, 25}, trees[1].Span())
	assert.Equal(t, "The dog ran.", trees[1].Root().Text())

	synth, err := ParseForest("", bracketed)
	require.NoError(t, err)
	require.Len(t, synth, 2)
	assert.Equal(t, "The cat sat .\nThe dog ran .", synth[0].Text())
	assert.Equal(t, Span{0, 13}, synth[0].Span())
	assert.Equal(t, Span{14, 27}, synth[1].Span())
	assert.Same(t, synth[0].Root(), synth[0].Root().Child(0).Parent())
}

func TestDecoder_SeekAndSequentialDecode(t *testing.T) {
	t.Parallel()

	text := "The cat sat. The dog ran."
	d := NewDecoder(text)

	first, err := d.Decode("(S (NP (DT The) (NN cat)) (VP (VBD sat)) (. .))")
	require.NoError(t, err)
	assert.Equal(t, 12, d.Offset())
	assert.Equal(t, Span{0, 12}, first.Span())

	second, err := d.Decode("(S (NP (DT The) (NN dog)) (VP (VBD ran)) (. .))")
	require.NoError(t, err)
	assert.Equal(t, Span{13, 25}, second.Span())

	require.NoError(t, d.Seek(13))
	again, err := d.Decode("(S (NP (DT The) (NN dog)) (VP (VBD ran)) (. .))")
	require.NoError(t, err)
	assert.Equal(t, second.Span(), again.Span())

	assert.Error(t, d.Seek(len(text)+1))
}

func TestDecoder_FailedDecodeKeepsCursor(t *testing.T) {
	t.Parallel()

	d := NewDecoder("The cat sat.")
	_, err := d.Decode("(S (NP (DT The) (NN dog)))")
	require.Error(t, err)
	assert.Equal(t, 0, d.Offset())

	trees, err := d.DecodeAll("(NP (DT The) (NN cat)) (VP (VBD sat))")
	require.NoError(t, err)
	require.Len(t, trees, 2)
	assert.Equal(t, Span{8, 11}, trees[1].Span())
}

func TestParseForest_UnlabeledWrapper(t *testing.T) {
	t.Parallel()

	trees, err := ParseForest("", "( (S (NP (NNS Dogs)) (VP (VBP bark))) )\n( (S (NP (NNS Cats)) (VP (VBP purr))) )\n")
	require.NoError(t, err)
	require.Len(t, trees, 2)
	assert.Equal(t, "(S (NP (NNS Dogs)) (VP (VBP bark)))", Encode(trees[0].Root()))
	assert.Equal(t, "(S (NP (NNS Cats)) (VP (VBP purr)))", Encode(trees[1].Root()))
	assert.Equal(t, "Dogs bark\nCats purr", trees[0].Text())

	yes, err := ParseAligned("Yes.", "( (UH Yes) )")
	require.NoError(t, err)
	assert.True(t, yes.Root().IsLeaf())
	assert.Equal(t, "UH", yes.Root().Label())
	assert.Equal(t, Span{0, 3}, yes.Span())

	_, err = Parse("( (S (NNS Dogs)) (S (NNS Cats)) )")
	var se *SyntaxError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 1, se.Offset)
	assert.Contains(t, se.Msg, "missing label")
}

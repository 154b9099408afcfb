package ponder_test

import (
	"strings"
	"testing"

	"github.com/fwojciec/ponder"
	"github.com/stretchr/testify/assert"
)

func TestSegment(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		text string
		want ponder.Segmentation
	}{
		{
			name: "empty",
			text: "",
			want: ponder.Segmentation{},
		},
		{
			name: "plain answer is trimmed",
			text: "  just an answer \n",
			want: ponder.Segmentation{Answer: "just an answer"},
		},
		{
			name: "stray end token is stripped",
			text: "before</think> after",
			want: ponder.Segmentation{Answer: "before after"},
		},
		{
			name: "stray end tokens in any case are stripped",
			text: "</THINK>a</Think>b",
			want: ponder.Segmentation{Answer: "ab"},
		},
		{
			name: "start without end is pending reasoning",
			text: "<think> working on it ",
			want: ponder.Segmentation{Reasoning: "working on it", HasReasoning: true},
		},
		{
			name: "start token alone",
			text: "<think>",
			want: ponder.Segmentation{HasReasoning: true},
		},
		{
			name: "complete reasoning and answer",
			text: "<think>\nstep one\n</think>\n\nThe answer.",
			want: ponder.Segmentation{
				Reasoning:         "step one",
				HasReasoning:      true,
				Answer:            "The answer.",
				ReasoningComplete: true,
			},
		},
		{
			name: "case variant tokens",
			text: "<THINK>r</ThInK>a",
			want: ponder.Segmentation{Reasoning: "r", HasReasoning: true, Answer: "a", ReasoningComplete: true},
		},
		{
			name: "text before start token belongs to neither region",
			text: "Hello <think>reasoning here</think>answer.",
			want: ponder.Segmentation{
				Reasoning:         "reasoning here",
				HasReasoning:      true,
				Answer:            "answer.",
				ReasoningComplete: true,
			},
		},
		{
			name: "second start token is inert content",
			text: "<think>a <think> b</think>c <think> d",
			want: ponder.Segmentation{
				Reasoning:         "a <think> b",
				HasReasoning:      true,
				Answer:            "c <think> d",
				ReasoningComplete: true,
			},
		},
		{
			name: "end before start is not an end",
			text: "</think>x<think>y",
			want: ponder.Segmentation{Reasoning: "y", HasReasoning: true},
		},
		{
			name: "empty reasoning",
			text: "<think></think>answer",
			want: ponder.Segmentation{HasReasoning: true, Answer: "answer", ReasoningComplete: true},
		},
		{
			name: "non-ascii text keeps offsets",
			text: "<think>İstanbul ünlü</think>Ärger €",
			want: ponder.Segmentation{
				Reasoning:         "İstanbul ünlü",
				HasReasoning:      true,
				Answer:            "Ärger €",
				ReasoningComplete: true,
			},
		},
		{
			name: "partial start token is answer text",
			text: "Hello <thi",
			want: ponder.Segmentation{Answer: "Hello <thi"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ponder.Segment(tt.text))
		})
	}
}

func TestSegment_Idempotent(t *testing.T) {
	t.Parallel()
	inputs := []string{"", "a", "<think>x", "<think>x</think>y", "x</think>y"}
	for _, in := range inputs {
		assert.Equal(t, ponder.Segment(in), ponder.Segment(in), in)
	}
}

// feed segments every prefix produced by splitting text at the given cut
// points and returns the final segmentation.
func feed(text string, cuts []int) ponder.Segmentation {
	var acc strings.Builder
	var seg ponder.Segmentation
	prev := 0
	for _, c := range append(cuts, len(text)) {
		acc.WriteString(text[prev:c])
		seg = ponder.Segment(acc.String())
		prev = c
	}
	return seg
}

func TestSegment_FragmentBoundaryInvariance(t *testing.T) {
	t.Parallel()
	texts := []string{
		"A <think> B",
		"A <think> B </think> C",
		"pre <ThInK>\nthe middle\n</THINK> post",
		"no tokens at all",
		"stray </think> end",
	}
	for _, text := range texts {
		whole := ponder.Segment(text)
		for i := 0; i <= len(text); i++ {
			assert.Equal(t, whole, feed(text, []int{i}), "single cut at %d in %q", i, text)
			for j := i; j <= len(text); j++ {
				assert.Equal(t, whole, feed(text, []int{i, j}), "cuts at %d,%d in %q", i, j, text)
			}
		}
		// One byte per fragment.
		cuts := make([]int, 0, len(text))
		for i := 1; i < len(text); i++ {
			cuts = append(cuts, i)
		}
		assert.Equal(t, whole, feed(text, cuts), "byte fragments of %q", text)
	}
}

func TestSegment_CompleteRegionsProperty(t *testing.T) {
	t.Parallel()
	starts := []string{"<think>", "<THINK>", "<Think>", "<tHiNk>"}
	ends := []string{"</think>", "</THINK>", "</Think>", "</ThInK>"}
	parts := []struct{ a, b, c string }{
		{"", "b", "c"},
		{"lead ", " reasoning \n", "\n answer "},
		{"x", "", ""},
		{"αβ", "γ δ", "ε"},
	}
	for _, s := range starts {
		for _, e := range ends {
			for _, p := range parts {
				got := ponder.Segment(p.a + s + p.b + e + p.c)
				assert.True(t, got.HasReasoning)
				assert.True(t, got.ReasoningComplete)
				assert.Equal(t, strings.TrimSpace(p.b), got.Reasoning)
				assert.Equal(t, strings.TrimSpace(p.c), got.Answer)
			}
		}
	}
}

func TestSegment_CanonicalScenario(t *testing.T) {
	t.Parallel()
	var acc strings.Builder
	var seg ponder.Segmentation
	for _, frag := range []string{"Hello ", "<thi", "nk>reasoning here</thi", "nk>answer."} {
		acc.WriteString(frag)
		seg = ponder.Segment(acc.String())
	}
	assert.Equal(t, ponder.Segmentation{
		Reasoning:         "reasoning here",
		HasReasoning:      true,
		Answer:            "answer.",
		ReasoningComplete: true,
	}, seg)
}

func TestSegmentation_Settled(t *testing.T) {
	t.Parallel()
	t.Run("promotes pending reasoning to answer", func(t *testing.T) {
		t.Parallel()
		got := ponder.Segment("<think>half a thought").Settled()
		assert.Equal(t, ponder.Segmentation{Answer: "half a thought"}, got)
	})
	t.Run("complete reasoning is unchanged", func(t *testing.T) {
		t.Parallel()
		seg := ponder.Segment("<think>r</think>a")
		assert.Equal(t, seg, seg.Settled())
	})
	t.Run("no reasoning is unchanged", func(t *testing.T) {
		t.Parallel()
		seg := ponder.Segment("answer")
		assert.Equal(t, seg, seg.Settled())
	})
}

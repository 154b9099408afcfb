// Package gemini implements [ponder.Client] directly against the Google
// Gemini API, without the retrieval backend.
//
// It wraps the google.golang.org/genai SDK. Thought parts are re-encoded as
// a <think>...</think> region at the front of the text stream so they flow
// through the same segmentation as backend output. Streaming uses the SDK's
// iter.Seq2 iterator, wrapped into the pull-based [ponder.Stream] interface.
package gemini

const (
	defaultModel          = "gemini-2.5-flash"
	defaultReasoningModel = "gemini-2.5-pro"
	defaultMaxTokens      = 8192
)

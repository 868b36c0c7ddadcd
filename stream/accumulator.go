package stream

import "strings"

// Summary is the final logical response equivalent to what a non-streaming
// call would have returned.
type Summary struct {
	Text             string
	ResponseID       string
	Model            string
	FinishReason     string
	PromptTokens     int
	CompletionTokens int
	Chunks           int
}

// TotalTokens returns the combined token count.
func (s Summary) TotalTokens() int {
	return s.PromptTokens + s.CompletionTokens
}

// Accumulator is the transient per-request state built while consuming a
// chunk sequence. It is discarded after producing one Summary. Not safe for
// concurrent use; streaming consumption is caller-driven and sequential.
type Accumulator struct {
	text             strings.Builder
	responseID       string
	model            string
	finishReason     string
	promptTokens     int
	completionTokens int
	chunks           int
}

func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Observe folds the normalized events of one chunk into the running state.
// Metadata fields keep the latest non-empty value seen; text deltas append.
func (a *Accumulator) Observe(events ...Event) {
	a.chunks++
	for _, event := range events {
		switch e := event.(type) {
		case TextDelta:
			a.text.WriteString(e.Text)
		case ResponseID:
			if e.ID != "" {
				a.responseID = e.ID
			}
		case ModelName:
			if e.Model != "" {
				a.model = e.Model
			}
		case FinishReason:
			if e.Reason != "" {
				a.finishReason = e.Reason
			}
		case Usage:
			if e.PromptTokens > 0 {
				a.promptTokens = e.PromptTokens
			}
			if e.CompletionTokens > 0 {
				a.completionTokens = e.CompletionTokens
			}
		}
	}
}

// Summary returns the state folded so far. Callers invoke it once the
// underlying sequence is exhausted; calling it earlier yields a partial view
// without disturbing the accumulator.
func (a *Accumulator) Summary() Summary {
	return Summary{
		Text:             a.text.String(),
		ResponseID:       a.responseID,
		Model:            a.model,
		FinishReason:     a.finishReason,
		PromptTokens:     a.promptTokens,
		CompletionTokens: a.completionTokens,
		Chunks:           a.chunks,
	}
}

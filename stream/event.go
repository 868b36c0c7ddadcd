// Package stream folds a sequence of provider response chunks into a single
// logical response summary while passing every byte through to the caller
// unmodified.
package stream

// Event is a sealed interface over the normalized facts a single chunk can
// carry. Provider normalizers translate vendor chunk shapes into events once,
// at the instrumentation boundary; the accumulator never inspects vendor
// shapes itself. The unexported marker method prevents external
// implementations.
type Event interface {
	event()
}

// TextDelta carries an incremental piece of generated text.
type TextDelta struct {
	Text string
}

func (TextDelta) event() {}

// ResponseID carries the provider-assigned response identifier.
type ResponseID struct {
	ID string
}

func (ResponseID) event() {}

// ModelName carries the model the provider reports serving the request.
type ModelName struct {
	Model string
}

func (ModelName) event() {}

// FinishReason carries the terminal reason reported by the provider.
type FinishReason struct {
	Reason string
}

func (FinishReason) event() {}

// Usage carries token counts. A zero field means the chunk did not report
// that count; the accumulator keeps the previous value.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

func (Usage) event() {}

// Interface compliance checks.
var (
	_ Event = TextDelta{}
	_ Event = ResponseID{}
	_ Event = ModelName{}
	_ Event = FinishReason{}
	_ Event = Usage{}
)

package pricing

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrModelNotPriced reports a model absent from the table category.
	ErrModelNotPriced = errors.New("pricing: model not priced")
	// ErrVariantNotPriced reports a priced image model without the requested
	// quality/size combination.
	ErrVariantNotPriced = errors.New("pricing: image variant not priced")
	// ErrUnknownKind reports a usage record with an unrecognized kind.
	ErrUnknownKind = errors.New("pricing: unknown usage kind")
)

// Usage is a transient record of one completed call, consumed once to
// produce a cost.
type Usage struct {
	Kind             Kind
	Model            string
	PromptTokens     int
	CompletionTokens int
	Characters       int
	ImageCount       int
	ImageQuality     string
	ImageSize        string
}

// Calculator computes USD costs against a fixed table. Construct one
// explicitly and pass it where needed; there is no ambient global table.
type Calculator struct {
	table Table
}

func NewCalculator(table Table) *Calculator {
	return &Calculator{table: table}
}

// Table returns the table the calculator was built with.
func (c *Calculator) Table() Table {
	return c.table
}

// Cost dispatches on the usage kind. Lookup failures return a typed error
// with a zero cost; callers on the telemetry path collapse that to zero via
// CostOrZero so attribution never fails the traced call.
func (c *Calculator) Cost(u Usage) (float64, error) {
	switch u.Kind {
	case KindChat:
		return c.ChatCost(u.Model, u.PromptTokens, u.CompletionTokens)
	case KindEmbeddings:
		return c.EmbeddingCost(u.Model, u.PromptTokens)
	case KindImages:
		return c.ImageCost(u.Model, u.ImageQuality, u.ImageSize, u.ImageCount)
	case KindAudio:
		return c.AudioCost(u.Model, u.Characters)
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, u.Kind)
	}
}

// ChatCost prices prompt and completion tokens at the model's per-1K rates.
func (c *Calculator) ChatCost(model string, promptTokens, completionTokens int) (float64, error) {
	price, ok := c.table.Chat[normalizeModel(model)]
	if !ok {
		return 0, fmt.Errorf("%w: chat %q", ErrModelNotPriced, model)
	}
	return (float64(promptTokens)/1000)*price.PromptPer1K +
		(float64(completionTokens)/1000)*price.CompletionPer1K, nil
}

// EmbeddingCost prices input tokens at the model's per-1K rate.
func (c *Calculator) EmbeddingCost(model string, tokens int) (float64, error) {
	price, ok := c.table.Embeddings[normalizeModel(model)]
	if !ok {
		return 0, fmt.Errorf("%w: embeddings %q", ErrModelNotPriced, model)
	}
	return (float64(tokens) / 1000) * price, nil
}

// ImageCost is a direct per-image lookup scaled by the number of images.
func (c *Calculator) ImageCost(model, quality, size string, count int) (float64, error) {
	variants, ok := c.table.Images[normalizeModel(model)]
	if !ok {
		return 0, fmt.Errorf("%w: images %q", ErrModelNotPriced, model)
	}
	sizes, ok := variants[strings.TrimSpace(quality)]
	if !ok {
		return 0, fmt.Errorf("%w: %q quality %q", ErrVariantNotPriced, model, quality)
	}
	perImage, ok := sizes[strings.TrimSpace(size)]
	if !ok {
		return 0, fmt.Errorf("%w: %q size %q", ErrVariantNotPriced, model, size)
	}
	if count < 0 {
		count = 0
	}
	return perImage * float64(count), nil
}

// AudioCost prices synthesized input text at the model's per-1K-character rate.
func (c *Calculator) AudioCost(model string, characters int) (float64, error) {
	price, ok := c.table.Audio[normalizeModel(model)]
	if !ok {
		return 0, fmt.Errorf("%w: audio %q", ErrModelNotPriced, model)
	}
	return (float64(characters) / 1000) * price, nil
}

// CostOrZero collapses a lookup failure to zero. This is the boundary the
// telemetry path uses: cost attribution degrades silently rather than
// breaking the instrumented call.
func CostOrZero(cost float64, err error) float64 {
	if err != nil || cost < 0 {
		return 0
	}
	return cost
}

func normalizeModel(model string) string {
	return strings.TrimSpace(model)
}

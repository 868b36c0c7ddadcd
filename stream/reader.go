package stream

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// Normalizer translates one raw chunk (a complete SSE event block or a raw
// JSON payload) into normalized events. A normalization error never stops
// delivery; the reader logs it and moves on.
type Normalizer interface {
	NormalizeChunk(chunk []byte) ([]Event, error)
}

// IsEventStream reports whether response headers announce an SSE body.
func IsEventStream(headers http.Header) bool {
	contentType := strings.ToLower(headers.Get("Content-Type"))
	return strings.Contains(contentType, "text/event-stream")
}

// Reader wraps a streaming response body. Every byte is delivered to the
// caller exactly as received while complete SSE event blocks are teed into an
// accumulator. The summary callback fires once, and only when the underlying
// body terminates with io.EOF; an error termination or an early Close skips
// it so partial usage is never reported as complete.
type Reader struct {
	body       io.ReadCloser
	normalizer Normalizer
	acc        *Accumulator
	onSummary  func(Summary)
	logger     *slog.Logger

	pending   []byte
	finished  bool
	summaried bool
}

func NewReader(body io.ReadCloser, normalizer Normalizer, onSummary func(Summary), logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{
		body:       body,
		normalizer: normalizer,
		acc:        NewAccumulator(),
		onSummary:  onSummary,
		logger:     logger,
	}
}

func (r *Reader) Read(p []byte) (int, error) {
	n, err := r.body.Read(p)
	if n > 0 {
		r.scan(p[:n])
	}
	if err == io.EOF {
		r.finish()
	}
	return n, err
}

// Close closes the underlying body. If the stream was abandoned before EOF no
// summary is emitted.
func (r *Reader) Close() error {
	r.finished = true
	return r.body.Close()
}

// Summary returns the state folded so far. Before EOF it is a partial view.
func (r *Reader) Summary() Summary {
	return r.acc.Summary()
}

// scan buffers transport bytes and feeds each complete SSE event block to the
// normalizer. Transport framing does not align with event framing, so a block
// may span several reads and one read may carry several blocks.
func (r *Reader) scan(data []byte) {
	r.pending = append(r.pending, data...)
	for {
		block, rest, ok := cutEventBlock(r.pending)
		if !ok {
			return
		}
		r.pending = rest
		r.observe(block)
	}
}

func (r *Reader) observe(block []byte) {
	if len(bytes.TrimSpace(block)) == 0 {
		return
	}
	events, err := r.normalizer.NormalizeChunk(block)
	if err != nil {
		// Count the chunk but keep whatever partial state we have. The
		// caller already received the bytes; telemetry stays best-effort.
		r.logger.Warn("stream chunk inspection failed", "error", err)
		r.acc.Observe()
		return
	}
	r.acc.Observe(events...)
}

func (r *Reader) finish() {
	if r.finished {
		return
	}
	r.finished = true

	if len(bytes.TrimSpace(r.pending)) > 0 {
		r.observe(r.pending)
		r.pending = nil
	}
	if r.onSummary != nil && !r.summaried {
		r.summaried = true
		r.onSummary(r.acc.Summary())
	}
}

// cutEventBlock splits buffered bytes at the first SSE event boundary (a
// blank line, with or without carriage returns).
func cutEventBlock(buf []byte) (block, rest []byte, ok bool) {
	idxLF := bytes.Index(buf, []byte("\n\n"))
	idxCRLF := bytes.Index(buf, []byte("\r\n\r\n"))

	switch {
	case idxLF == -1 && idxCRLF == -1:
		return nil, buf, false
	case idxCRLF != -1 && (idxLF == -1 || idxCRLF < idxLF):
		return buf[:idxCRLF], buf[idxCRLF+4:], true
	default:
		return buf[:idxLF], buf[idxLF+2:], true
	}
}

package vm

import (
	"io"
	"strings"
)

// Sink receives everything the running program prints. The machine
// treats a write failure as fatal.
type Sink interface {
	Write(text string) error
}

// BufferSink accumulates output in memory. Useful for tests and for
// callers that post-process program output.
type BufferSink struct {
	sb strings.Builder
}

// Write appends text to the buffer. It never fails.
func (b *BufferSink) Write(text string) error {
	b.sb.WriteString(text)
	return nil
}

// String returns everything written so far.
func (b *BufferSink) String() string {
	return b.sb.String()
}

// Reset discards buffered output.
func (b *BufferSink) Reset() {
	b.sb.Reset()
}

// WriterSink forwards output to an io.Writer.
type WriterSink struct {
	W io.Writer
}

// Write sends text to the underlying writer.
func (w WriterSink) Write(text string) error {
	_, err := io.WriteString(w.W, text)
	return err
}

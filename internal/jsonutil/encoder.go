// Package jsonutil provides pooled, pretty-printing JSON encoding helpers for
// the HTTP render layer.
package jsonutil

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	json "github.com/goccy/go-json"
)

// Encoder is a pooled buffer-backed JSON encoder for repeated marshal operations.
type Encoder struct {
	buf *bytes.Buffer
}

var encoderPool = sync.Pool{
	New: func() any {
		return &Encoder{buf: bytes.NewBuffer(make([]byte, 0, 2048))}
	},
}

// Acquire returns a pooled JSON encoder.
func Acquire() *Encoder {
	enc := encoderPool.Get().(*Encoder)
	enc.buf.Reset()
	return enc
}

// Release returns the encoder to the pool.
func Release(enc *Encoder) {
	if enc == nil {
		return
	}
	enc.buf.Reset()
	encoderPool.Put(enc)
}

// Encode marshals v as two-space-indented JSON and returns a copy of the bytes.
// The returned slice is safe for use after the encoder is released.
func (e *Encoder) Encode(v any) ([]byte, error) {
	if e == nil {
		return nil, nil
	}
	e.buf.Reset()
	encoder := json.NewEncoder(e.buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return nil, fmt.Errorf("json encode: %w", err)
	}
	data := trimTrailingNewline(e.buf.Bytes())
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// WriteTo encodes v as two-space-indented JSON directly to w.
func (e *Encoder) WriteTo(w io.Writer, v any) error {
	if e == nil {
		return nil
	}
	e.buf.Reset()
	encoder := json.NewEncoder(e.buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("json encode: %w", err)
	}
	data := trimTrailingNewline(e.buf.Bytes())
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write encoded json: %w", err)
	}
	return nil
}

// WriteIndented writes v to w as pretty-printed JSON using a pooled encoder.
func WriteIndented(w io.Writer, v any) error {
	enc := Acquire()
	defer Release(enc)
	return enc.WriteTo(w, v)
}

func trimTrailingNewline(data []byte) []byte {
	if len(data) > 0 && data[len(data)-1] == '\n' {
		return data[:len(data)-1]
	}
	return data
}

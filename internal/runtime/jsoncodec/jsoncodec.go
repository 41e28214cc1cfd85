// Package jsoncodec is the canonical wire codec for operation-log events.
// Every payload published to a broker goes through Marshal, so the whole
// module agrees on a single JSON implementation.
package jsoncodec

import (
	"io"

	"github.com/bytedance/sonic"
)

var defaultConfig = sonic.ConfigStd

// Marshal encodes v as UTF-8 JSON.
func Marshal(v any) ([]byte, error) {
	return defaultConfig.Marshal(v)
}

// Unmarshal decodes UTF-8 JSON into v.
func Unmarshal(data []byte, v any) error {
	return defaultConfig.Unmarshal(data, v)
}

// Encode writes v as JSON to w.
func Encode(w io.Writer, v any) error {
	enc := defaultConfig.NewEncoder(w)
	return enc.Encode(v)
}

// Decode reads JSON from r into v.
func Decode(r io.Reader, v any) error {
	dec := defaultConfig.NewDecoder(r)
	return dec.Decode(v)
}

// Encodable reports whether v can be represented as JSON by this codec.
// The sanitizer uses it as the scalar pass-through probe.
func Encodable(v any) bool {
	_, err := defaultConfig.Marshal(v)
	return err == nil
}

// Package json contains helpers for decoding JSON request bodies.
package json

import (
	"encoding/json"
	"fmt"
	"io"
)

// Decode decodes a single JSON object and rejects trailing garbage.
func Decode(dst any, decoder *json.Decoder) error {
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("decoding json: %w", err)
	}
	if _, err := decoder.Token(); err != io.EOF {
		return fmt.Errorf("unexpected token after JSON object: %w", err)
	}
	return nil
}

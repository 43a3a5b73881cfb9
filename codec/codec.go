// Package codec defines the pluggable value codec the engine treats as an
// external collaborator: a freeze/thaw pair used both to serialize node
// images to the nodes file and, by a higher-level caller, to serialize
// user values before they're handed to Insert.
//
// The engine only needs *a* deterministic encoder with a fast decoder; it
// does not care which one. GobCodec is the default, grounded on the only
// serialization idiom the teacher repo actually uses on its own
// structured types (encoding/json in catalog/checkpoint manager) — gob is
// used here instead of json because it round-trips Go's []byte/[]int64
// slices without base64 inflation.
package codec

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/ordinalkv/ordinalkv/dberr"
)

// Codec freezes a value to bytes and thaws it back.
type Codec interface {
	Freeze(v any) ([]byte, error)
	Thaw(data []byte, out any) error
}

// GobCodec is the default Codec, backed by encoding/gob.
type GobCodec struct{}

func (GobCodec) Freeze(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("%w: freeze: %v", dberr.CodecFailure, err)
	}
	return buf.Bytes(), nil
}

func (GobCodec) Thaw(data []byte, out any) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(out); err != nil {
		return fmt.Errorf("%w: thaw: %v", dberr.CodecFailure, err)
	}
	return nil
}

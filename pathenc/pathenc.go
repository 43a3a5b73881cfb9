// Package pathenc implements the order-preserving key encoding the tree
// orders on: every value is framed as <type-byte><body><delimiter>, so
// that byte-lexicographic comparison of encoded keys matches the
// intended ordering across heterogeneous value types.
//
// The type-byte table is grounded on types/operations.go's
// byte-tagged OperationType enum (a named byte type with a block of
// named constants dispatched on in encode/decode). Variable-width bodies
// carry no length prefix: each one ends at its element's delimiter byte.
package pathenc

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ordinalkv/ordinalkv/dberr"
)

// TypeByte tags an encoded element's value type. Byte 0x00 is reserved
// as the element delimiter and can never be registered.
type TypeByte byte

const (
	TypeNull        TypeByte = 0x10
	TypeBoolFalse   TypeByte = 0x20
	TypeBoolTrue    TypeByte = 0x21
	TypeInstant     TypeByte = 0x25
	TypeNegInfinity TypeByte = 0x30
	TypeNumber      TypeByte = 0x31
	TypePosInfinity TypeByte = 0x32
	TypeSymbol      TypeByte = 0x68
	TypeNamedTag    TypeByte = 0x69
	TypeString      TypeByte = 0x70
	TypeSequence    TypeByte = 0xa0

	delimiter byte = 0x00
)

// Symbol and Tag give callers a way to pick the symbol/named-tag
// encodings for a Go string, distinct from the plain string encoding.
type Symbol string
type Tag string

// NegInfinity and PosInfinity are the two unbounded sentinels; pass
// these (not a user value) to encode an always-smallest or
// always-largest range endpoint.
type negInfinity struct{}
type posInfinity struct{}

var (
	NegInfinity = negInfinity{}
	PosInfinity = posInfinity{}
)

// Encoder produces the body bytes for a value of a registered type.
type Encoder func(v any) ([]byte, error)

// Decoder reconstructs a value from the body bytes of a registered type.
type Decoder func(body []byte) (any, error)

type registration struct {
	typeByte TypeByte
	matches  func(v any) bool
	encode   Encoder
	decode   Decoder
}

var (
	registryByMatch []registration
	registryByByte  = map[TypeByte]registration{}
)

// Register adds a new type to the encoding table. It refuses byte 0x00
// (the delimiter) and logs a warning rather than erroring when typeByte
// redefines an existing registration — the later registration replaces
// the earlier one for both encoding and decoding.
func Register(typeByte TypeByte, matches func(v any) bool, encode Encoder, decode Decoder) error {
	if typeByte == 0x00 {
		return fmt.Errorf("%w: type byte 0x00 is reserved for the delimiter", dberr.NoMatchingEncoder)
	}
	r := registration{typeByte: typeByte, matches: matches, encode: encode, decode: decode}
	if _, exists := registryByByte[typeByte]; exists {
		fmt.Printf("[pathenc] warning: redefining type byte 0x%02x\n", byte(typeByte))
		for i := range registryByMatch {
			if registryByMatch[i].typeByte == typeByte {
				registryByMatch[i] = r
			}
		}
	} else {
		registryByMatch = append(registryByMatch, r)
	}
	registryByByte[typeByte] = r
	return nil
}

func init() {
	must := func(err error) {
		if err != nil {
			panic(err)
		}
	}

	must(Register(TypeNull,
		func(v any) bool { return v == nil },
		func(any) ([]byte, error) { return nil, nil },
		func([]byte) (any, error) { return nil, nil }))

	must(Register(TypeBoolFalse,
		func(v any) bool { b, ok := v.(bool); return ok && !b },
		func(any) ([]byte, error) { return nil, nil },
		func([]byte) (any, error) { return false, nil }))

	must(Register(TypeBoolTrue,
		func(v any) bool { b, ok := v.(bool); return ok && b },
		func(any) ([]byte, error) { return nil, nil },
		func([]byte) (any, error) { return true, nil }))

	must(Register(TypeInstant,
		func(v any) bool { _, ok := v.(time.Time); return ok },
		func(v any) ([]byte, error) { return []byte(v.(time.Time).UTC().Format(time.RFC3339Nano)), nil },
		func(body []byte) (any, error) { return time.Parse(time.RFC3339Nano, string(body)) }))

	must(Register(TypeNegInfinity,
		func(v any) bool { _, ok := v.(negInfinity); return ok },
		func(any) ([]byte, error) { return nil, nil },
		func([]byte) (any, error) { return NegInfinity, nil }))

	must(Register(TypePosInfinity,
		func(v any) bool { _, ok := v.(posInfinity); return ok },
		func(any) ([]byte, error) { return nil, nil },
		func([]byte) (any, error) { return PosInfinity, nil }))

	must(Register(TypeNumber, isNumber, encodeNumber, decodeNumber))

	must(Register(TypeSymbol,
		func(v any) bool { _, ok := v.(Symbol); return ok },
		func(v any) ([]byte, error) { return []byte(v.(Symbol)), nil },
		func(body []byte) (any, error) { return Symbol(body), nil }))

	must(Register(TypeNamedTag,
		func(v any) bool { _, ok := v.(Tag); return ok },
		func(v any) ([]byte, error) { return []byte(v.(Tag)), nil },
		func(body []byte) (any, error) { return Tag(body), nil }))

	must(Register(TypeString,
		func(v any) bool { _, ok := v.(string); return ok },
		func(v any) ([]byte, error) { return []byte(v.(string)), nil },
		func(body []byte) (any, error) { return string(body), nil }))

	must(Register(TypeSequence,
		func(v any) bool { _, ok := v.([]any); return ok },
		encodeSequence,
		decodeSequence))
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, float32, float64:
		return true
	}
	return false
}

func lookupEncoder(v any) (registration, error) {
	for _, r := range registryByMatch {
		if r.matches(v) {
			return r, nil
		}
	}
	return registration{}, fmt.Errorf("%w: no encoder registered for %T", dberr.NoMatchingEncoder, v)
}

// Encode fully frames v as <type-byte><body><delimiter>.
func Encode(v any) ([]byte, error) {
	r, err := lookupEncoder(v)
	if err != nil {
		return nil, err
	}
	body, err := r.encode(v)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(body)+2)
	out = append(out, byte(r.typeByte))
	out = append(out, body...)
	out = append(out, delimiter)
	return out, nil
}

// EncodePartial frames v as <type-byte><body>, trimming the trailing
// delimiter. Used for range-endpoint keys where an exact encoded value
// would over-constrain a prefix search.
func EncodePartial(v any) ([]byte, error) {
	full, err := Encode(v)
	if err != nil {
		return nil, err
	}
	return full[:len(full)-1], nil
}

// EncodeKey concatenates the full encodings of each value, in order, for
// building a multi-field composite key.
func EncodeKey(values ...any) ([]byte, error) {
	var out []byte
	for _, v := range values {
		enc, err := Encode(v)
		if err != nil {
			return nil, err
		}
		out = append(out, enc...)
	}
	return out, nil
}

// Decode reads one framed element from the front of data, returning the
// decoded value and the unconsumed remainder.
func Decode(data []byte) (value any, rest []byte, err error) {
	if len(data) == 0 {
		return nil, nil, fmt.Errorf("%w: empty input", dberr.NoMatchingDecoder)
	}
	typeByte := TypeByte(data[0])
	r, ok := registryByByte[typeByte]
	if !ok {
		return nil, nil, fmt.Errorf("%w: type byte 0x%02x", dberr.NoMatchingDecoder, byte(typeByte))
	}

	var body []byte
	if typeByte == TypeSequence {
		body, rest = scanFramedBody(data[1:])
	} else {
		idx := indexDelimiter(data[1:])
		if idx < 0 {
			return nil, nil, fmt.Errorf("%w: unterminated element", dberr.CorruptState)
		}
		body = data[1 : 1+idx]
		rest = data[1+idx+1:]
	}

	value, err = r.decode(body)
	return value, rest, err
}

// DecodeAll decodes a full run of concatenated framed elements, e.g. the
// fields of a composite key built with EncodeKey.
func DecodeAll(data []byte) ([]any, error) {
	var out []any
	for len(data) > 0 {
		v, rest, err := Decode(data)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		data = rest
	}
	return out, nil
}

func indexDelimiter(data []byte) int {
	for i, b := range data {
		if b == delimiter {
			return i
		}
	}
	return -1
}

// scanFramedBody finds the end of a sequence's body by stepping over one
// framed element at a time (recursing through Decode for nested
// sequences), so the first bare delimiter found where an element would
// start is the sequence's own closing delimiter rather than a nested
// element's.
func scanFramedBody(data []byte) (body []byte, rest []byte) {
	i := 0
	for i < len(data) {
		if data[i] == delimiter {
			return data[:i], data[i+1:]
		}
		_, r, err := Decode(data[i:])
		if err != nil {
			return data, nil
		}
		i = len(data) - len(r)
	}
	return data, nil
}

func encodeSequence(v any) ([]byte, error) {
	elems := v.([]any)
	var out []byte
	for _, e := range elems {
		enc, err := Encode(e)
		if err != nil {
			return nil, err
		}
		out = append(out, enc...)
	}
	return out, nil
}

func decodeSequence(body []byte) (any, error) {
	return DecodeAll(body)
}

// encodeNumber implements the legacy nines-complement order-preserving
// decimal encoding: sign byte, 3-digit length code, 'x' separator, then
// the (possibly digit-complemented) decimal string, so that finite
// numbers of any magnitude or sign sort consistently as raw bytes.
func encodeNumber(v any) ([]byte, error) {
	s, negative := decimalString(v)
	intDigits := countIntDigits(s)

	var lenCode int
	var sign byte
	if !negative {
		sign = '_'
		lenCode = intDigits
	} else {
		sign = '-'
		lenCode = (1000 - intDigits) % 1000
		s = complementDigits(s)
	}

	return []byte(fmt.Sprintf("%c%03dx%s", sign, lenCode, s)), nil
}

func decodeNumber(body []byte) (any, error) {
	if len(body) < 5 {
		return nil, fmt.Errorf("%w: number body too short", dberr.CorruptState)
	}
	sign := body[0]
	rest := string(body[5:])
	if sign == '-' {
		rest = complementDigits(rest)
	}
	if strings.Contains(rest, ".") {
		return strconv.ParseFloat(rest, 64)
	}
	return strconv.ParseInt(rest, 10, 64)
}

func decimalString(v any) (s string, negative bool) {
	switch n := v.(type) {
	case int:
		return strconv.FormatInt(int64(n), 10), n < 0
	case int8:
		return strconv.FormatInt(int64(n), 10), n < 0
	case int16:
		return strconv.FormatInt(int64(n), 10), n < 0
	case int32:
		return strconv.FormatInt(int64(n), 10), n < 0
	case int64:
		return strconv.FormatInt(n, 10), n < 0
	case float32:
		return strconv.FormatFloat(float64(n), 'f', -1, 64), n < 0
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64), n < 0
	}
	return "0", false
}

func countIntDigits(s string) int {
	s = strings.TrimPrefix(s, "-")
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return i
	}
	return len(s)
}

// complementDigits replaces each decimal digit d with 9-d, preserving
// any decimal point and the leading minus sign.
func complementDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteByte(byte('9' - (r - '0')))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

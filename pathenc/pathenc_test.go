package pathenc

import (
	"bytes"
	"sort"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	values := []any{
		nil,
		false,
		true,
		"hello",
		Symbol("sym"),
		Tag("tag"),
		int64(42),
		int64(-42),
		3.5,
		-3.5,
		NegInfinity,
		PosInfinity,
	}
	for _, v := range values {
		enc, err := Encode(v)
		if err != nil {
			t.Fatalf("Encode(%#v): %v", v, err)
		}
		got, rest, err := Decode(enc)
		if err != nil {
			t.Fatalf("Decode(%#v): %v", v, err)
		}
		if len(rest) != 0 {
			t.Errorf("Decode(%#v) left %d unconsumed bytes", v, len(rest))
		}
		if got != v {
			t.Errorf("round trip %#v -> %#v", v, got)
		}
	}
}

func TestNumberOrderingMatchesNumericOrdering(t *testing.T) {
	nums := []int64{-1000, -100, -1, 0, 1, 100, 1000}
	encoded := make([][]byte, len(nums))
	for i, n := range nums {
		enc, err := Encode(n)
		if err != nil {
			t.Fatalf("Encode(%d): %v", n, err)
		}
		encoded[i] = enc
	}

	sorted := append([][]byte(nil), encoded...)
	sort.Slice(sorted, func(i, j int) bool { return bytes.Compare(sorted[i], sorted[j]) < 0 })

	for i, enc := range sorted {
		if !bytes.Equal(enc, encoded[i]) {
			t.Fatalf("byte ordering of encoded numbers doesn't match numeric ordering at index %d", i)
		}
	}
}

func TestSequenceRoundTrip(t *testing.T) {
	seq := []any{"a", int64(1), []any{"nested", int64(2)}, "b"}
	enc, err := Encode(seq)
	if err != nil {
		t.Fatalf("Encode(sequence): %v", err)
	}
	got, rest, err := Decode(enc)
	if err != nil {
		t.Fatalf("Decode(sequence): %v", err)
	}
	if len(rest) != 0 {
		t.Fatalf("Decode(sequence) left %d unconsumed bytes", len(rest))
	}

	gotSeq, ok := got.([]any)
	if !ok || len(gotSeq) != 4 {
		t.Fatalf("Decode(sequence) = %#v, want a 4-element []any", got)
	}
	if gotSeq[0] != "a" || gotSeq[1] != int64(1) || gotSeq[3] != "b" {
		t.Errorf("Decode(sequence) = %#v", gotSeq)
	}
	nested, ok := gotSeq[2].([]any)
	if !ok || len(nested) != 2 || nested[0] != "nested" || nested[1] != int64(2) {
		t.Errorf("Decode(sequence) nested element = %#v", gotSeq[2])
	}
}

func TestEncodeKeyOrderingAcrossCompositeFields(t *testing.T) {
	low, err := EncodeKey("a", int64(1))
	if err != nil {
		t.Fatalf("EncodeKey: %v", err)
	}
	high, err := EncodeKey("a", int64(2))
	if err != nil {
		t.Fatalf("EncodeKey: %v", err)
	}
	if bytes.Compare(low, high) >= 0 {
		t.Fatalf("EncodeKey(a,1) should sort before EncodeKey(a,2)")
	}
}

func TestEncodePartialTrimsTrailingDelimiter(t *testing.T) {
	full, err := Encode("abc")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	partial, err := EncodePartial("abc")
	if err != nil {
		t.Fatalf("EncodePartial: %v", err)
	}
	if len(partial) != len(full)-1 {
		t.Fatalf("EncodePartial length = %d, want %d", len(partial), len(full)-1)
	}
	if !bytes.Equal(full[:len(full)-1], partial) {
		t.Fatalf("EncodePartial content mismatch")
	}
}

func TestRegisterRejectsDelimiterByte(t *testing.T) {
	err := Register(0x00, func(any) bool { return false }, nil, nil)
	if err == nil {
		t.Fatalf("Register(0x00) succeeded, want error")
	}
}

func TestDecodeUnknownTypeByteFails(t *testing.T) {
	_, _, err := Decode([]byte{0xff, 0x00})
	if err == nil {
		t.Fatalf("Decode with unregistered type byte succeeded, want error")
	}
}

package container

import (
	"testing"

	"github.com/wasmharness/function-runner/codec"
)

func TestMakeInputJSONRoundTrip(t *testing.T) {
	// Invariant 1 (spec.md §8): for every valid JSON input J,
	// make_input(JSON, serialize(J)).json_value = J and re-serializing raw
	// yields a canonical minified form.
	c, err := MakeInput(codec.JSON, []byte(`{"b": 2, "a": [1,2,3]}`))
	if err != nil {
		t.Fatalf("MakeInput: %v", err)
	}
	if !c.HasJSONValue {
		t.Fatal("expected JSON value to be set")
	}
	if c.HasEncodingError {
		t.Fatal("Input role should never set EncodingError on success")
	}
	m := c.JSONValue.(map[string]any)
	if m["b"] != float64(2) {
		t.Errorf("b = %v, want 2", m["b"])
	}
	reencoded, err := codec.EncodeJSON(c.JSONValue)
	if err != nil {
		t.Fatalf("re-encode: %v", err)
	}
	if string(reencoded) != string(c.Raw) {
		t.Errorf("raw should be the canonical minified encoding: got %s want %s", c.Raw, reencoded)
	}
}

func TestMakeInputJSONInvalid(t *testing.T) {
	if _, err := MakeInput(codec.JSON, []byte(`not json`)); err == nil {
		t.Fatal("expected error for invalid JSON input")
	}
}

func TestMakeInputMessagePack(t *testing.T) {
	// Invariant 2: make_input(MessagePack, raw).raw = messagepack(J).
	c, err := MakeInput(codec.MessagePack, []byte(`{"name":"ada"}`))
	if err != nil {
		t.Fatalf("MakeInput: %v", err)
	}
	want, err := codec.EncodeMessagePack(c.JSONValue)
	if err != nil {
		t.Fatalf("EncodeMessagePack: %v", err)
	}
	if string(c.Raw) != string(want) {
		t.Errorf("raw mismatch: got %x want %x", c.Raw, want)
	}
}

func TestMakeInputRaw(t *testing.T) {
	c, err := MakeInput(codec.Raw, []byte{0xde, 0xad})
	if err != nil {
		t.Fatalf("MakeInput: %v", err)
	}
	if c.HasJSONValue {
		t.Fatal("Raw codec should never set json_value")
	}
	if c.Humanized != "de ad" {
		t.Errorf("Humanized = %q, want %q", c.Humanized, "de ad")
	}
}

func TestMakeOutputInvalidJSON(t *testing.T) {
	// Invariant 3: make_output never fails; it records the error and
	// preserves the raw bytes.
	raw := []byte("not json at all")
	c := MakeOutput(codec.JSON, raw)
	if c.Valid() {
		t.Fatal("expected invalid output")
	}
	if !c.HasEncodingError || c.EncodingError == "" {
		t.Fatal("expected a recorded encoding error")
	}
	if c.Humanized != string(raw) {
		t.Errorf("humanized = %q, want %q", c.Humanized, raw)
	}
	if string(c.Raw) != string(raw) {
		t.Error("raw bytes should be preserved on decode failure")
	}
}

func TestMakeOutputValidJSON(t *testing.T) {
	c := MakeOutput(codec.JSON, []byte(`{"ok":true}`))
	if !c.Valid() {
		t.Fatalf("expected valid output, got error %q", c.EncodingError)
	}
	if c.JSONValue.(map[string]any)["ok"] != true {
		t.Errorf("unexpected decoded value: %v", c.JSONValue)
	}
}

func TestMakeOutputLossyUTF8(t *testing.T) {
	raw := []byte{0xff, 0xfe, '{', '}'}
	c := MakeOutput(codec.JSON, raw)
	if c.Valid() {
		t.Fatal("expected invalid output for non-JSON bytes with invalid UTF-8")
	}
	if c.Humanized == string(raw) {
		t.Error("expected lossy UTF-8 replacement, not a raw byte-for-byte copy")
	}
}

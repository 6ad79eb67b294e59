// Package codec identifies and transcodes the wire encodings a function's
// input and output documents can use: JSON, MessagePack, or Raw bytes.
package codec

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec names a wire encoding. The zero value is JSON.
type Codec int

const (
	JSON Codec = iota
	MessagePack
	Raw
)

func (c Codec) String() string {
	switch c {
	case JSON:
		return "json"
	case MessagePack:
		return "messagepack"
	case Raw:
		return "raw"
	default:
		return fmt.Sprintf("codec(%d)", int(c))
	}
}

// DecodeJSON parses JSON bytes into a generic tree (map[string]any,
// []any, string, float64, bool, or nil).
func DecodeJSON(raw []byte) (any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// EncodeJSON serializes a decoded tree back into minified JSON.
func EncodeJSON(v any) ([]byte, error) {
	return json.Marshal(v)
}

// EncodeJSONPretty serializes a decoded tree into a pretty-printed,
// two-space-indented JSON rendering.
func EncodeJSONPretty(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

// DecodeMessagePack parses MessagePack bytes into a generic JSON-shaped
// tree, the same shape DecodeJSON produces.
func DecodeMessagePack(raw []byte) (any, error) {
	var v any
	if err := msgpack.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return normalizeMsgpack(v), nil
}

// EncodeMessagePack serializes a decoded tree into MessagePack bytes.
func EncodeMessagePack(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

// normalizeMsgpack rewrites the map[string]interface{} / []byte shapes the
// msgpack decoder produces into the map[string]any / string shapes
// encoding/json produces, so callers see one consistent tree regardless of
// which wire codec it arrived over.
func normalizeMsgpack(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = normalizeMsgpack(elem)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = normalizeMsgpack(elem)
		}
		return out
	case []byte:
		return string(val)
	case int8:
		return float64(val)
	case int16:
		return float64(val)
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	case uint8:
		return float64(val)
	case uint16:
		return float64(val)
	case uint32:
		return float64(val)
	case uint64:
		return float64(val)
	case int:
		return float64(val)
	case uint:
		return float64(val)
	default:
		return val
	}
}

// TranscodeJSONToWire re-encodes JSON source bytes into the wire form for
// the declared codec. The source bytes are always parsed as JSON first,
// regardless of the target codec — this mirrors the CLI-layer contract
// where input documents start life as JSON text and are transcoded down
// to whatever the guest actually consumes.
func TranscodeJSONToWire(c Codec, jsonBytes []byte) ([]byte, any, error) {
	v, err := DecodeJSON(jsonBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid input JSON: %w", err)
	}
	switch c {
	case JSON:
		raw, err := EncodeJSON(v)
		if err != nil {
			return nil, nil, fmt.Errorf("couldn't serialize JSON: %w", err)
		}
		return raw, v, nil
	case MessagePack:
		raw, err := EncodeMessagePack(v)
		if err != nil {
			return nil, nil, fmt.Errorf("couldn't convert JSON to MessagePack: %w", err)
		}
		return raw, v, nil
	default:
		return nil, nil, fmt.Errorf("codec %s cannot transcode from JSON", c)
	}
}

// Decode attempts to parse raw bytes under the declared codec, returning
// the decoded tree. Raw never decodes to a tree.
func Decode(c Codec, raw []byte) (any, error) {
	switch c {
	case JSON:
		return DecodeJSON(raw)
	case MessagePack:
		return DecodeMessagePack(raw)
	case Raw:
		return nil, fmt.Errorf("codec %s has no decoded value", c)
	default:
		return nil, fmt.Errorf("unknown codec %d", int(c))
	}
}

// LossyUTF8 decodes raw bytes as UTF-8, replacing any invalid sequence
// with the Unicode replacement character, mirroring Rust's
// String::from_utf8_lossy used when output bytes fail to parse under the
// declared codec.
func LossyUTF8(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	buf := make([]byte, 0, len(raw))
	for len(raw) > 0 {
		r, size := utf8.DecodeRune(raw)
		if r == utf8.RuneError && size == 1 {
			buf = append(buf, "�"...)
			raw = raw[1:]
			continue
		}
		buf = append(buf, raw[:size]...)
		raw = raw[size:]
	}
	return string(buf)
}

// HexDump renders raw bytes as a lowercase, space-separated hex dump, the
// Raw codec's humanized representation.
func HexDump(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	buf := make([]byte, 0, len(raw)*3-1)
	const hextable = "0123456789abcdef"
	for i, b := range raw {
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = append(buf, hextable[b>>4], hextable[b&0x0f])
	}
	return string(buf)
}

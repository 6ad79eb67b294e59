// Package container holds BytesContainer, the "bytes + humanized view +
// optional decoded value + encoding error" record shared by the input and
// output sides of a function run.
package container

import (
	"fmt"

	"github.com/wasmharness/function-runner/codec"
)

// BytesContainer holds raw encoded bytes alongside a decoded JSON view, a
// humanized rendering, and any encoding error encountered while building
// it. See spec.md §4.B for the invariants by codec and role.
type BytesContainer struct {
	Raw              []byte      `json:"-"`
	Codec            codec.Codec `json:"-"`
	JSONValue        any         `json:"-"`
	HasJSONValue     bool        `json:"-"`
	Humanized        string      `json:"humanized"`
	EncodingError    string      `json:"-"`
	HasEncodingError bool        `json:"-"`
}

// MakeInput constructs an Input-role container. Decoding failure is fatal:
// an error is returned and no container is produced.
func MakeInput(c codec.Codec, raw []byte) (*BytesContainer, error) {
	switch c {
	case codec.Raw:
		return &BytesContainer{
			Raw:       raw,
			Codec:     c,
			Humanized: codec.HexDump(raw),
		}, nil

	case codec.JSON:
		v, err := codec.DecodeJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid input JSON: %w", err)
		}
		minified, err := codec.EncodeJSON(v)
		if err != nil {
			return nil, fmt.Errorf("couldn't serialize JSON: %w", err)
		}
		pretty, err := codec.EncodeJSONPretty(v)
		if err != nil {
			return nil, fmt.Errorf("couldn't pretty-print JSON: %w", err)
		}
		return &BytesContainer{
			Raw:          minified,
			Codec:        c,
			JSONValue:    v,
			HasJSONValue: true,
			Humanized:    string(pretty),
		}, nil

	case codec.MessagePack:
		// The wire format for Input is always JSON text regardless of the
		// declared codec — the input bytes are parsed as JSON, then
		// re-encoded as MessagePack for whatever consumes raw downstream.
		v, err := codec.DecodeJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid input JSON: %w", err)
		}
		mp, err := codec.EncodeMessagePack(v)
		if err != nil {
			return nil, fmt.Errorf("couldn't convert JSON to MessagePack: %w", err)
		}
		pretty, err := codec.EncodeJSONPretty(v)
		if err != nil {
			return nil, fmt.Errorf("couldn't pretty-print JSON: %w", err)
		}
		return &BytesContainer{
			Raw:          mp,
			Codec:        c,
			JSONValue:    v,
			HasJSONValue: true,
			Humanized:    string(pretty),
		}, nil

	default:
		return nil, fmt.Errorf("unknown codec %d", int(c))
	}
}

// MakeOutput constructs an Output-role container. Decoding failure is
// never fatal: the raw bytes and a lossy-UTF8 humanized view are always
// preserved, with EncodingError recording why decoding failed.
func MakeOutput(c codec.Codec, raw []byte) *BytesContainer {
	switch c {
	case codec.Raw:
		return &BytesContainer{
			Raw:       raw,
			Codec:     c,
			Humanized: codec.HexDump(raw),
		}

	case codec.JSON:
		v, err := codec.DecodeJSON(raw)
		if err != nil {
			return &BytesContainer{
				Raw:              raw,
				Codec:            c,
				Humanized:        codec.LossyUTF8(raw),
				EncodingError:    err.Error(),
				HasEncodingError: true,
			}
		}
		pretty, err := codec.EncodeJSONPretty(v)
		if err != nil {
			return &BytesContainer{
				Raw:              raw,
				Codec:            c,
				Humanized:        codec.LossyUTF8(raw),
				EncodingError:    err.Error(),
				HasEncodingError: true,
			}
		}
		return &BytesContainer{
			Raw:          raw,
			Codec:        c,
			JSONValue:    v,
			HasJSONValue: true,
			Humanized:    string(pretty),
		}

	case codec.MessagePack:
		v, err := codec.DecodeMessagePack(raw)
		if err != nil {
			return &BytesContainer{
				Raw:              raw,
				Codec:            c,
				Humanized:        codec.LossyUTF8(raw),
				EncodingError:    fmt.Sprintf("invalid MessagePack output: %s", err),
				HasEncodingError: true,
			}
		}
		pretty, err := codec.EncodeJSONPretty(v)
		if err != nil {
			return &BytesContainer{
				Raw:              raw,
				Codec:            c,
				Humanized:        codec.LossyUTF8(raw),
				EncodingError:    fmt.Sprintf("invalid MessagePack output: %s", err),
				HasEncodingError: true,
			}
		}
		return &BytesContainer{
			Raw:          raw,
			Codec:        c,
			JSONValue:    v,
			HasJSONValue: true,
			Humanized:    string(pretty),
		}

	default:
		return &BytesContainer{
			Raw:              raw,
			Codec:            c,
			Humanized:        codec.LossyUTF8(raw),
			EncodingError:    fmt.Sprintf("unknown codec %d", int(c)),
			HasEncodingError: true,
		}
	}
}

// Valid reports whether the container decoded successfully (Output role)
// or was constructed at all (Input role, where construction failing
// returns an error instead of an invalid container).
func (b *BytesContainer) Valid() bool {
	return !b.HasEncodingError
}

package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"synapse/internal/domain"
)

var (
	ErrMalformed    = errors.New("malformed envelope")
	ErrMissingField = errors.New("missing field")
)

const (
	fieldDescriptor = "sdp"
	fieldKind       = "type"
	fieldKey        = "dhKey"
)

// Codec encodes and decodes envelopes for one protocol variant.
type Codec struct {
	Protocol domain.Protocol
	Strict   bool
}

// New returns a Codec for protocol p.
func New(p domain.Protocol, strict bool) Codec {
	return Codec{Protocol: p, Strict: strict}
}

// keyedEnvelope is the on-the-wire layout of a ProtocolDH envelope.
type keyedEnvelope struct {
	SDP   domain.SessionDescriptor `json:"sdp"`
	DHKey *domain.JWK              `json:"dhKey,omitempty"`
}

// Encode renders env with two-space indentation. Output is deterministic
// for a given envelope.
func (c Codec) Encode(env domain.Envelope) (string, error) {
	if err := checkDescriptor(env.Descriptor); err != nil {
		return "", err
	}

	var v any
	switch c.Protocol {
	case domain.ProtocolDH:
		if env.PublicKey == nil && c.Strict {
			return "", missing(fieldKey)
		}
		v = keyedEnvelope{SDP: env.Descriptor, DHKey: env.PublicKey}
	case domain.ProtocolPlain:
		v = env.Descriptor
	default:
		return "", fmt.Errorf("unknown protocol %q", c.Protocol)
	}

	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Decode parses text produced by Encode on the peer. Surrounding whitespace
// is ignored.
func (c Codec) Decode(text string) (domain.Envelope, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Envelope{}, fmt.Errorf("%w: empty input", ErrMalformed)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return domain.Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if fields == nil {
		return domain.Envelope{}, fmt.Errorf("%w: not an object", ErrMalformed)
	}

	rawDesc, ok := present(fields, fieldDescriptor)
	if !ok {
		return domain.Envelope{}, missing(fieldDescriptor)
	}
	nested := isObject(rawDesc)

	switch c.Protocol {
	case domain.ProtocolDH:
		if !nested {
			if c.Strict {
				return domain.Envelope{}, missing(fieldKey)
			}
			desc, err := descriptorFrom(fields)
			return domain.Envelope{Descriptor: desc}, err
		}
		desc, err := nestedDescriptor(rawDesc)
		if err != nil {
			return domain.Envelope{}, err
		}
		rawKey, ok := present(fields, fieldKey)
		if !ok {
			if c.Strict {
				return domain.Envelope{}, missing(fieldKey)
			}
			return domain.Envelope{Descriptor: desc}, nil
		}
		var jwk domain.JWK
		if !isObject(rawKey) {
			return domain.Envelope{}, fmt.Errorf("%w: %s is not an object", ErrMalformed, fieldKey)
		}
		if err := json.Unmarshal(rawKey, &jwk); err != nil {
			return domain.Envelope{}, fmt.Errorf("%w: %s: %v", ErrMalformed, fieldKey, err)
		}
		return domain.Envelope{Descriptor: desc, PublicKey: &jwk}, nil

	case domain.ProtocolPlain:
		if nested {
			if c.Strict {
				return domain.Envelope{}, missing(fieldKind)
			}
			desc, err := nestedDescriptor(rawDesc)
			return domain.Envelope{Descriptor: desc}, err
		}
		desc, err := descriptorFrom(fields)
		return domain.Envelope{Descriptor: desc}, err

	default:
		return domain.Envelope{}, fmt.Errorf("unknown protocol %q", c.Protocol)
	}
}

// Compact strips the indentation from an encoded envelope, for QR codes.
func Compact(text string) (string, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(strings.TrimSpace(text))); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return buf.String(), nil
}

func nestedDescriptor(raw json.RawMessage) (domain.SessionDescriptor, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return domain.SessionDescriptor{}, fmt.Errorf("%w: %s: %v", ErrMalformed, fieldDescriptor, err)
	}
	return descriptorFrom(fields)
}

func descriptorFrom(fields map[string]json.RawMessage) (domain.SessionDescriptor, error) {
	rawKind, ok := present(fields, fieldKind)
	if !ok {
		return domain.SessionDescriptor{}, missing(fieldKind)
	}
	rawSDP, ok := present(fields, fieldDescriptor)
	if !ok {
		return domain.SessionDescriptor{}, missing(fieldDescriptor)
	}

	var d domain.SessionDescriptor
	if err := json.Unmarshal(rawKind, &d.Kind); err != nil {
		return domain.SessionDescriptor{}, fmt.Errorf("%w: %s: %v", ErrMalformed, fieldKind, err)
	}
	if err := json.Unmarshal(rawSDP, &d.SDP); err != nil {
		return domain.SessionDescriptor{}, fmt.Errorf("%w: %s: %v", ErrMalformed, fieldDescriptor, err)
	}
	if err := checkDescriptor(d); err != nil {
		return domain.SessionDescriptor{}, err
	}
	return d, nil
}

func checkDescriptor(d domain.SessionDescriptor) error {
	if !d.Kind.Valid() {
		return fmt.Errorf("%w: unknown descriptor type %q", ErrMalformed, d.Kind)
	}
	if strings.TrimSpace(d.SDP) == "" {
		return fmt.Errorf("%w: empty session description", ErrMalformed)
	}
	return nil
}

// present returns the raw value for name, treating JSON null as absent.
func present(fields map[string]json.RawMessage, name string) (json.RawMessage, bool) {
	raw, ok := fields[name]
	if !ok || string(bytes.TrimSpace(raw)) == "null" {
		return nil, false
	}
	return raw, true
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

func missing(name string) error {
	return fmt.Errorf("%w: %q", ErrMissingField, name)
}

package types

// DescriptorKind discriminates offers from answers.
type DescriptorKind string

const (
	DescriptorOffer  DescriptorKind = "offer"
	DescriptorAnswer DescriptorKind = "answer"
)

// Valid reports whether k is one of the supported kinds.
func (k DescriptorKind) Valid() bool {
	return k == DescriptorOffer || k == DescriptorAnswer
}

// SessionDescriptor is the connectivity payload produced by the transport.
// Its JSON form matches RTCSessionDescription.
type SessionDescriptor struct {
	Kind DescriptorKind `json:"type"`
	SDP  string         `json:"sdp"`
}

// Equal reports whether d and o describe the same session.
func (d SessionDescriptor) Equal(o SessionDescriptor) bool {
	return d.Kind == o.Kind && d.SDP == o.SDP
}

// JWK is an exported EC public key in the layout WebCrypto produces for
// exportKey("jwk"). Field order is alphabetical to match it byte for byte.
type JWK struct {
	Crv    string   `json:"crv"`
	Ext    bool     `json:"ext"`
	KeyOps []string `json:"key_ops"`
	Kty    string   `json:"kty"`
	X      string   `json:"x"`
	Y      string   `json:"y"`
}

// Variant tells which envelope shape was exchanged.
type Variant int

const (
	// VariantDescriptorOnly carries no key material.
	VariantDescriptorOnly Variant = iota
	// VariantWithKey carries the sender's public key.
	VariantWithKey
)

// String returns the variant name.
func (v Variant) String() string {
	if v == VariantWithKey {
		return "descriptor+key"
	}
	return "descriptor-only"
}

// Envelope is the unit a human copies between peers.
type Envelope struct {
	Descriptor SessionDescriptor
	PublicKey  *JWK
}

// Variant reports the envelope shape.
func (e Envelope) Variant() Variant {
	if e.PublicKey != nil {
		return VariantWithKey
	}
	return VariantDescriptorOnly
}

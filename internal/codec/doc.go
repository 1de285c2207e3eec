// Package codec renders negotiation envelopes as text a human can copy
// between peers, and parses them back.
//
// Two shapes exist and a Codec speaks exactly one of them:
//
//   - ProtocolDH:    {"sdp": {"type": "offer", "sdp": "..."}, "dhKey": {JWK}}
//   - ProtocolPlain: {"type": "offer", "sdp": "..."}
//
// In strict mode the other protocol's shape is rejected with ErrMissingField
// naming the field it lacks. In lenient mode a ProtocolDH codec accepts
// envelopes without key material and a ProtocolPlain codec ignores any key.
package codec

// Package channel binds the negotiation machine to a byte-message transport.
//
// PeerTransport speaks WebRTC through pion: it produces final descriptors
// (after ICE candidate gathering, bounded by a timeout) and carries chat
// tokens over a data channel. Hub and MemoryTransport pair two transports
// inside one process for tests and self checks.
//
// Both report OnOpen, OnMessage and OnClose through domain.ChannelEvents.
// Send fails with ErrNotOpen before the channel opens and with ErrClosed
// after it closes. Nothing is retried.
package channel

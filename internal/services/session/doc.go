// Package session is the caller-owned chat session.
//
// A Service ties together the negotiation machine, the key gate, the message
// service and a transport. Callers drive it with StartSession,
// AcceptEnvelope and Send, and observe it through Subscribe. There is no
// package-level state; a restarted session is a new Service.
package session

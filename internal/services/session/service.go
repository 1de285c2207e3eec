package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"synapse/internal/channel"
	"synapse/internal/crypto"
	"synapse/internal/domain"
	"synapse/internal/protocol/e2ee"
	"synapse/internal/protocol/keyagreement"
	"synapse/internal/protocol/negotiation"
	"synapse/internal/services/message"
)

const (
	textConnected    = "*** connection established ***"
	textDisconnected = "*** connection lost ***"
	textNotOpen      = "connection not open yet"
	textStandalone   = "warning: no key was agreed with the peer; messages will not decrypt on either side"
)

var _ domain.SessionService = (*Service)(nil)

// Options configures a Service.
type Options struct {
	Protocol domain.Protocol
	Strict   bool
	Suite    crypto.Suite
	KDF      keyagreement.KDF

	// Transcript is optional. When set, every chat line is appended to it
	// under Passphrase.
	Transcript domain.TranscriptStore
	Passphrase string

	Logger *logrus.Entry
}

// Service runs one two-party chat session over transport.
//
// High-level flow:
//   - StartSession: become the initiator and return the offer envelope.
//   - AcceptEnvelope: apply the peer's envelope. An offer yields an answer
//     envelope to send back; an answer completes the handshake.
//   - Once the transport opens, Send seals text and incoming tokens are
//     delivered to subscribers as EventMessage.
type Service struct {
	id        string
	opts      Options
	transport domain.Transport
	gate      *e2ee.KeyGate
	machine   *negotiation.Machine
	messages  *message.Service
	log       *logrus.Entry

	mu   sync.Mutex
	subs []func(domain.Event)
	ice  string

	// keyMu keeps Close from wiping the key while a message is being sealed
	// or opened with it.
	keyMu  sync.RWMutex
	closed bool
}

// New constructs a Session Service bound to transport.
func New(opts Options, transport domain.Transport) *Service {
	id := uuid.NewString()
	base := opts.Logger
	if base == nil {
		base = logrus.NewEntry(logrus.StandardLogger())
	}
	log := base.WithField("session", id)

	gate := e2ee.NewKeyGate()
	s := &Service{
		id:        id,
		opts:      opts,
		transport: transport,
		gate:      gate,
		machine: negotiation.New(negotiation.Config{
			Protocol: opts.Protocol,
			Strict:   opts.Strict,
			Suite:    opts.Suite,
			KDF:      opts.KDF,
			Logger:   log,
		}, transport, gate),
		messages: message.New(gate, id),
		log:      log.WithField("package", "session"),
	}

	s.machine.Observe(func(t negotiation.Transition) {
		s.emit(domain.Event{Kind: domain.EventPhaseChanged, Phase: t.To})
	})
	transport.SetEvents(domain.ChannelEvents{
		OnOpen:        s.onOpen,
		OnMessage:     s.onMessage,
		OnClose:       s.onClose,
		OnStateChange: s.onStateChange,
	})
	return s
}

// ID returns the session identifier used in logs and transcripts.
func (s *Service) ID() string { return s.id }

// Subscribe registers fn for session events. fn runs on the goroutine that
// produced the event and must not block.
func (s *Service) Subscribe(fn func(domain.Event)) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

// StartSession makes this side the initiator and returns the offer envelope.
func (s *Service) StartSession(ctx context.Context) (string, error) {
	text, err := s.machine.CreateSession(ctx)
	if err != nil {
		s.emit(domain.Event{Kind: domain.EventError, Err: err})
		return "", err
	}
	s.emit(domain.Event{Kind: domain.EventEnvelopeReady, Envelope: text})
	return text, nil
}

// AcceptEnvelope applies the peer's envelope and returns the reply to send
// back, if any.
func (s *Service) AcceptEnvelope(ctx context.Context, text string) (string, error) {
	reply, err := s.machine.ReceiveEnvelope(ctx, text)
	if err != nil {
		s.emit(domain.Event{Kind: domain.EventError, Err: err})
		return "", err
	}
	if reply != "" {
		s.emit(domain.Event{Kind: domain.EventEnvelopeReady, Envelope: reply})
	}
	return reply, nil
}

// Send seals text and writes it to the channel. When the channel is not
// open the message is not sent and a system line explains why.
func (s *Service) Send(text string) (domain.ChatMessage, error) {
	msg, err := s.seal(text)
	if err != nil {
		if errors.Is(err, channel.ErrNotOpen) {
			s.system(textNotOpen)
		}
		s.emit(domain.Event{Kind: domain.EventError, Err: err})
		return domain.ChatMessage{}, err
	}
	s.deliver(msg)
	return msg, nil
}

func (s *Service) seal(text string) (domain.ChatMessage, error) {
	s.keyMu.RLock()
	defer s.keyMu.RUnlock()
	if s.closed {
		return domain.ChatMessage{}, channel.ErrClosed
	}
	token, msg, err := s.messages.Outgoing(text)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	if err := s.transport.Send([]byte(token)); err != nil {
		return domain.ChatMessage{}, err
	}
	return msg, nil
}

// Status reports the session's current state.
func (s *Service) Status() domain.Status {
	snap := s.machine.Snapshot()
	st := domain.Status{
		SessionID: s.id,
		Protocol:  s.machine.Protocol(),
		Role:      snap.Role,
		Phase:     snap.Phase,
		Channel:   s.transport.State(),
		Keys:      snap.Keys,
	}
	s.mu.Lock()
	st.ICEState = s.ice
	s.mu.Unlock()

	if snap.LocalKey != nil {
		st.LocalKeyFingerprint, _ = crypto.FingerprintJWK(*snap.LocalKey)
	}
	if snap.RemoteKey != nil {
		st.RemoteKeyFingerprint, _ = crypto.FingerprintJWK(*snap.RemoteKey)
	}
	s.keyMu.RLock()
	if k := s.gate.Key(); k != nil && !s.closed {
		st.SharedKeyFingerprint = k.Fingerprint()
	}
	s.keyMu.RUnlock()
	return st
}

// Close closes the transport and wipes the session key. Messages arriving
// after Close are dropped.
func (s *Service) Close() error {
	err := s.transport.Close()

	s.keyMu.Lock()
	defer s.keyMu.Unlock()
	if s.closed {
		return err
	}
	s.closed = true
	if k := s.gate.Key(); k != nil {
		k.Wipe()
	}
	return err
}

func (s *Service) onOpen() {
	mode, err := s.machine.OnChannelOpen()
	if err != nil {
		s.log.WithField("function", "onOpen").WithError(err).Error("could not install session key")
		s.emit(domain.Event{Kind: domain.EventError, Err: err})
	}
	s.log.WithFields(logrus.Fields{
		"function": "onOpen",
		"keys":     mode.String(),
	}).Info("channel open")

	s.emit(domain.Event{Kind: domain.EventChannelOpen})
	s.system(textConnected)
	if mode == domain.KeyStandalone {
		s.system(textStandalone)
	}
}

func (s *Service) onMessage(data []byte) {
	s.keyMu.RLock()
	if s.closed {
		s.keyMu.RUnlock()
		return
	}
	msg := s.messages.Incoming(data)
	s.keyMu.RUnlock()
	s.deliver(msg)
}

func (s *Service) onClose() {
	s.log.WithField("function", "onClose").Info("channel closed")
	s.emit(domain.Event{Kind: domain.EventChannelClosed})
	s.system(textDisconnected)
}

func (s *Service) onStateChange(state string) {
	s.mu.Lock()
	s.ice = state
	s.mu.Unlock()
	s.emit(domain.Event{Kind: domain.EventConnectivity, State: state})
}

func (s *Service) system(text string) {
	s.deliver(domain.ChatMessage{
		SessionID: s.id,
		Direction: domain.DirectionSystem,
		Text:      text,
		At:        time.Now(),
	})
}

// deliver records msg in the transcript, if any, and publishes it.
func (s *Service) deliver(msg domain.ChatMessage) {
	if s.opts.Transcript != nil {
		if err := s.opts.Transcript.AppendMessages(s.opts.Passphrase, msg); err != nil {
			s.log.WithField("function", "deliver").WithError(err).Warn("transcript append failed")
		}
	}
	s.emit(domain.Event{Kind: domain.EventMessage, Message: &msg})
}

func (s *Service) emit(ev domain.Event) {
	s.mu.Lock()
	subs := make([]func(domain.Event), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}

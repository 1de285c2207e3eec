package negotiation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"synapse/internal/codec"
	"synapse/internal/crypto"
	"synapse/internal/domain"
	"synapse/internal/protocol/e2ee"
	"synapse/internal/protocol/keyagreement"
)

var (
	ErrUnexpectedMessage = errors.New("unexpected envelope for current state")
	ErrAlreadyApplied    = errors.New("remote descriptor already applied")
	ErrSessionActive     = errors.New("session already started")
)

// Transition is reported to observers on every phase change.
type Transition struct {
	From domain.Phase
	To   domain.Phase
	Role domain.Role
}

// Observer is called synchronously from the goroutine that fed the input.
// It must not feed inputs back into the machine.
type Observer func(Transition)

// Config selects the envelope protocol and the key schedule.
type Config struct {
	Protocol domain.Protocol
	Strict   bool
	Suite    crypto.Suite
	KDF      keyagreement.KDF
	Logger   *logrus.Entry
}

// State is a copy of the machine's signaling state.
type State struct {
	Role             domain.Role
	Phase            domain.Phase
	Keys             domain.KeyMode
	LocalDescriptor  *domain.SessionDescriptor
	RemoteDescriptor *domain.SessionDescriptor
	LocalKey         *domain.JWK
	RemoteKey        *domain.JWK
}

// Machine is the signaling state for exactly one session.
type Machine struct {
	cfg    Config
	codec  codec.Codec
	neg    domain.Negotiator
	gate   *e2ee.KeyGate
	engine *keyagreement.Engine
	log    *logrus.Entry

	// opMu serializes inputs. mu guards the fields below and is never held
	// across a call into the negotiator.
	opMu sync.Mutex

	mu        sync.RWMutex
	st        State
	observers []Observer
}

// New returns an idle machine. Derived keys are installed into gate.
func New(cfg Config, neg domain.Negotiator, gate *e2ee.KeyGate) *Machine {
	if cfg.Protocol == "" {
		cfg.Protocol = domain.ProtocolDH
	}
	if cfg.Suite == "" {
		cfg.Suite = crypto.SuiteAESGCM
	}
	if cfg.KDF == "" {
		cfg.KDF = keyagreement.KDFHKDF
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Machine{
		cfg:    cfg,
		codec:  codec.New(cfg.Protocol, cfg.Strict),
		neg:    neg,
		gate:   gate,
		engine: keyagreement.NewEngine(cfg.Suite, cfg.KDF),
		log:    log.WithField("package", "negotiation"),
	}
}

// Observe registers fn for phase transitions.
func (m *Machine) Observe(fn Observer) {
	m.mu.Lock()
	m.observers = append(m.observers, fn)
	m.mu.Unlock()
}

// Snapshot returns a copy of the current state.
func (m *Machine) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st
}

// Phase returns the current phase.
func (m *Machine) Phase() domain.Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.Phase
}

// Protocol returns the envelope protocol the machine speaks.
func (m *Machine) Protocol() domain.Protocol { return m.cfg.Protocol }

// CreateSession makes this side the initiator and returns the offer
// envelope once the local descriptor is final.
func (m *Machine) CreateSession(ctx context.Context) (string, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	log := m.log.WithField("function", "CreateSession")

	if cur := m.Snapshot(); cur.Phase != domain.PhaseIdle || cur.Role != domain.RoleUninitiated {
		return "", fmt.Errorf("%w (role %s, phase %s)", ErrSessionActive, cur.Role, cur.Phase)
	}

	m.update(func(s *State) { s.Role = domain.RoleInitiator })
	m.enter(domain.PhaseInitiating)

	var pub *domain.JWK
	if m.cfg.Protocol == domain.ProtocolDH {
		kp, err := m.engine.Generate()
		if err != nil {
			return "", m.fail(log, "generate key pair", err)
		}
		pub = &kp.Public
		m.update(func(s *State) { s.LocalKey = pub })
	}

	offer, err := m.neg.CreateOffer(ctx)
	if err != nil {
		return "", m.fail(log, "create offer", err)
	}
	text, err := m.codec.Encode(domain.Envelope{Descriptor: offer, PublicKey: pub})
	if err != nil {
		return "", m.fail(log, "encode offer", err)
	}

	m.update(func(s *State) { s.LocalDescriptor = &offer })
	m.enter(domain.PhaseAwaitingAnswer)
	log.WithField("protocol", m.cfg.Protocol).Info("offer ready")
	return text, nil
}

// ReceiveEnvelope applies the peer's envelope. For an offer it returns the
// answer envelope to send back. For an answer the reply is empty.
func (m *Machine) ReceiveEnvelope(ctx context.Context, text string) (string, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	log := m.log.WithField("function", "ReceiveEnvelope")

	env, err := m.codec.Decode(text)
	if err != nil {
		log.WithError(err).Debug("rejected envelope")
		return "", err
	}
	cur := m.Snapshot()

	if cur.RemoteDescriptor != nil && cur.RemoteDescriptor.Equal(env.Descriptor) {
		return "", ErrAlreadyApplied
	}

	kind := env.Descriptor.Kind
	switch {
	case kind == domain.DescriptorOffer && cur.Role == domain.RoleUninitiated && cur.Phase == domain.PhaseIdle:
	case kind == domain.DescriptorAnswer && cur.Role == domain.RoleInitiator && cur.Phase == domain.PhaseAwaitingAnswer:
	default:
		return "", fmt.Errorf("%w: %s while %s/%s", ErrUnexpectedMessage, kind, cur.Role, cur.Phase)
	}

	// Reject bad key material before anything is committed.
	var remoteKey *domain.JWK
	if m.cfg.Protocol == domain.ProtocolDH && env.PublicKey != nil {
		if err := keyagreement.ValidateRemote(*env.PublicKey); err != nil {
			return "", err
		}
		remoteKey = env.PublicKey
	}

	if kind == domain.DescriptorOffer {
		return m.answer(ctx, log, env.Descriptor, remoteKey)
	}
	return "", m.complete(ctx, log, env.Descriptor, remoteKey)
}

// answer runs the responder path.
func (m *Machine) answer(ctx context.Context, log *logrus.Entry, offer domain.SessionDescriptor, remoteKey *domain.JWK) (string, error) {
	m.update(func(s *State) {
		s.Role = domain.RoleResponder
		s.RemoteDescriptor = &offer
		s.RemoteKey = remoteKey
	})
	m.enter(domain.PhaseAwaitingOffer)

	if err := m.neg.ApplyRemote(ctx, offer); err != nil {
		return "", m.fail(log, "apply offer", err)
	}

	// A key pair is only useful if the offer carried the peer's key.
	var pub *domain.JWK
	if remoteKey != nil {
		kp, err := m.engine.Generate()
		if err != nil {
			return "", m.fail(log, "generate key pair", err)
		}
		pub = &kp.Public
		m.update(func(s *State) { s.LocalKey = pub })
		if err := m.derive(*remoteKey); err != nil {
			return "", m.fail(log, "derive shared key", err)
		}
	} else if m.cfg.Protocol == domain.ProtocolDH {
		log.Warn("offer carried no key material; falling back to a standalone key")
	}

	m.enter(domain.PhaseAnswering)

	ans, err := m.neg.CreateAnswer(ctx)
	if err != nil {
		return "", m.fail(log, "create answer", err)
	}
	text, err := m.codec.Encode(domain.Envelope{Descriptor: ans, PublicKey: pub})
	if err != nil {
		return "", m.fail(log, "encode answer", err)
	}

	m.update(func(s *State) { s.LocalDescriptor = &ans })
	m.enter(domain.PhaseConnected)
	log.Info("answer ready")
	return text, nil
}

// complete runs the initiator's final step.
func (m *Machine) complete(ctx context.Context, log *logrus.Entry, ans domain.SessionDescriptor, remoteKey *domain.JWK) error {
	m.update(func(s *State) {
		s.RemoteDescriptor = &ans
		s.RemoteKey = remoteKey
	})

	if err := m.neg.ApplyRemote(ctx, ans); err != nil {
		return m.fail(log, "apply answer", err)
	}
	if remoteKey != nil {
		if err := m.derive(*remoteKey); err != nil {
			return m.fail(log, "derive shared key", err)
		}
	} else if m.cfg.Protocol == domain.ProtocolDH {
		log.Warn("answer carried no key material; falling back to a standalone key")
	}

	m.enter(domain.PhaseConnected)
	log.Info("answer applied")
	return nil
}

func (m *Machine) derive(remote domain.JWK) error {
	key, err := m.engine.Derive(remote)
	if err != nil {
		return err
	}
	if err := m.gate.Install(key); err != nil {
		return err
	}
	m.update(func(s *State) { s.Keys = domain.KeyShared })
	return nil
}

// OnChannelOpen makes sure a key is installed once the channel is up. When
// no key was agreed, a standalone key is generated. The peer does not hold
// that key, so messages in both directions will fail to decrypt.
func (m *Machine) OnChannelOpen() (domain.KeyMode, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if m.gate.Key() != nil {
		return m.Snapshot().Keys, nil
	}

	key, err := keyagreement.GenerateSymmetric(m.cfg.Suite)
	if err != nil {
		return domain.KeyNone, err
	}
	if err := m.gate.Install(key); err != nil {
		return domain.KeyNone, err
	}
	m.update(func(s *State) { s.Keys = domain.KeyStandalone })

	m.log.WithFields(logrus.Fields{
		"function":    "OnChannelOpen",
		"protocol":    m.cfg.Protocol,
		"fingerprint": key.Fingerprint(),
	}).Warn("no agreed key; generated a standalone key the peer does not share")
	return domain.KeyStandalone, nil
}

func (m *Machine) update(fn func(*State)) {
	m.mu.Lock()
	fn(&m.st)
	m.mu.Unlock()
}

func (m *Machine) enter(p domain.Phase) {
	m.mu.Lock()
	t := Transition{From: m.st.Phase, To: p, Role: m.st.Role}
	m.st.Phase = p
	obs := append([]Observer(nil), m.observers...)
	m.mu.Unlock()

	m.log.WithFields(logrus.Fields{
		"role": t.Role.String(),
		"from": t.From.String(),
		"to":   t.To.String(),
	}).Debug("phase transition")
	for _, fn := range obs {
		fn(t)
	}
}

func (m *Machine) fail(log *logrus.Entry, step string, err error) error {
	log.WithError(err).WithField("step", step).Error("negotiation failed")
	m.enter(domain.PhaseFailed)
	return fmt.Errorf("%s: %w", step, err)
}

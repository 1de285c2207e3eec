package app

import (
	"github.com/sirupsen/logrus"

	"synapse/internal/channel"
	"synapse/internal/crypto"
	"synapse/internal/domain"
	"synapse/internal/protocol/keyagreement"
	sessionsvc "synapse/internal/services/session"
	"synapse/internal/store"
)

// Wire bundles the session, its transport and the optional transcript for
// the CLI.
type Wire struct {
	Session    *sessionsvc.Service
	Transport  domain.Transport
	Transcript domain.TranscriptStore
}

// NewWire constructs the dependency graph from cfg. A nil transport selects
// a WebRTC PeerTransport configured from cfg.
func NewWire(cfg *Config, passphrase string, transport domain.Transport) (*Wire, error) {
	protocol, err := domain.ParseProtocol(cfg.Protocol)
	if err != nil {
		return nil, err
	}
	suite, err := crypto.ParseSuite(cfg.Suite)
	if err != nil {
		return nil, err
	}
	kdf, err := keyagreement.ParseKDF(cfg.KDF)
	if err != nil {
		return nil, err
	}

	log := logrus.WithField("protocol", string(protocol))

	if transport == nil {
		transport = channel.NewPeerTransport(channel.Options{
			ICEServers:    cfg.ICEServers,
			GatherTimeout: cfg.GatherTimeout,
			Logger:        log,
		})
	}

	// Transcript is opt-in and needs a passphrase to seal with.
	var transcript domain.TranscriptStore
	if cfg.Transcript != nil && cfg.Transcript.Path != "" {
		if passphrase == "" {
			log.Warn("transcript path set without a passphrase; transcript disabled")
		} else {
			transcript = store.NewTranscriptFileStore(cfg.Transcript.Path)
		}
	}

	sess := sessionsvc.New(sessionsvc.Options{
		Protocol:   protocol,
		Strict:     cfg.Strict,
		Suite:      suite,
		KDF:        kdf,
		Transcript: transcript,
		Passphrase: passphrase,
		Logger:     log,
	}, transport)

	return &Wire{
		Session:    sess,
		Transport:  transport,
		Transcript: transcript,
	}, nil
}

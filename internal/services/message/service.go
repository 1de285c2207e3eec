package message

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"synapse/internal/domain"
	"synapse/internal/protocol/e2ee"
	"synapse/internal/protocol/keyagreement"
)

// KeySource yields the current session key, or nil before one is installed.
type KeySource interface {
	Key() *keyagreement.SharedKey
}

var _ domain.MessageService = (*Service)(nil)

// Service encrypts and decrypts chat messages for one session.
//
// High-level flow:
//   - Outgoing: seal text under the current key. Without a key the sentinel
//     token is produced so the line still reaches the peer.
//   - Incoming: open a token. Failures never surface as empty text; the
//     message carries a placeholder and the underlying error.
type Service struct {
	keys      KeySource
	sessionID string
	now       func() time.Time
	log       *logrus.Entry
}

// New constructs a Message Service reading keys from keys.
func New(keys KeySource, sessionID string) *Service {
	return &Service{
		keys:      keys,
		sessionID: sessionID,
		now:       time.Now,
		log: logrus.WithFields(logrus.Fields{
			"package": "message",
			"session": sessionID,
		}),
	}
}

// Outgoing seals text and returns the token to send with the message to display.
func (s *Service) Outgoing(text string) (string, domain.ChatMessage, error) {
	token, err := e2ee.Seal(s.keys.Key(), []byte(text))
	if err != nil {
		return "", domain.ChatMessage{}, err
	}
	msg := domain.ChatMessage{
		SessionID: s.sessionID,
		Direction: domain.DirectionLocal,
		Text:      text,
		At:        s.now(),
	}
	if token == e2ee.Sentinel {
		msg.Err = e2ee.ErrNoKey
		s.log.WithField("function", "Outgoing").Warn("no session key; sending sentinel")
	}
	return token, msg, nil
}

// Incoming opens a received token.
func (s *Service) Incoming(data []byte) domain.ChatMessage {
	msg := domain.ChatMessage{
		SessionID: s.sessionID,
		Direction: domain.DirectionRemote,
		At:        s.now(),
	}

	pt, err := e2ee.Open(s.keys.Key(), string(data))
	switch {
	case err == nil:
		msg.Text = string(pt)
	case errors.Is(err, e2ee.ErrNoKey):
		// Shown as received.
		msg.Text = string(pt)
		msg.Err = err
	default:
		msg.Text = e2ee.Placeholder(err)
		msg.Placeholder = true
		msg.Err = err
	}

	if err != nil {
		s.log.WithFields(logrus.Fields{
			"function": "Incoming",
			"bytes":    len(data),
		}).WithError(err).Warn("could not decrypt message")
	}
	return msg
}

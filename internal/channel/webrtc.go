package channel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pion/webrtc/v3"
	"github.com/sirupsen/logrus"

	"synapse/internal/domain"
)

const (
	DefaultLabel         = "chat"
	DefaultGatherTimeout = 1500 * time.Millisecond
)

// Options configures a PeerTransport.
type Options struct {
	ICEServers    []string
	GatherTimeout time.Duration
	Label         string
	Logger        *logrus.Entry
}

// PeerTransport is a WebRTC peer connection with one data channel.
type PeerTransport struct {
	opts Options
	log  *logrus.Entry
	lc   lifecycle

	mu        sync.Mutex
	pc        *webrtc.PeerConnection
	dc        *webrtc.DataChannel
	closeOnce sync.Once
}

// NewPeerTransport returns a transport. The peer connection is created
// lazily by the first negotiation call.
func NewPeerTransport(opts Options) *PeerTransport {
	if opts.GatherTimeout <= 0 {
		opts.GatherTimeout = DefaultGatherTimeout
	}
	if opts.Label == "" {
		opts.Label = DefaultLabel
	}
	log := opts.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &PeerTransport{opts: opts, log: log.WithField("package", "channel")}
}

// SetEvents installs the channel callbacks.
func (t *PeerTransport) SetEvents(ev domain.ChannelEvents) { t.lc.setEvents(ev) }

// State returns the data channel state.
func (t *PeerTransport) State() domain.ChannelState { return t.lc.State() }

func (t *PeerTransport) ensurePeer() (*webrtc.PeerConnection, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.pc != nil {
		return t.pc, nil
	}
	if t.lc.State() == domain.ChannelClosed {
		return nil, ErrClosed
	}

	cfg := webrtc.Configuration{}
	if len(t.opts.ICEServers) > 0 {
		cfg.ICEServers = []webrtc.ICEServer{{URLs: t.opts.ICEServers}}
	}
	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		t.log.WithFields(logrus.Fields{
			"function": "OnICEConnectionStateChange",
			"state":    s.String(),
		}).Info("ice connection state changed")
		t.lc.connectivity(s.String())
		if s == webrtc.ICEConnectionStateFailed || s == webrtc.ICEConnectionStateClosed {
			t.lc.closed()
		}
	})
	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			t.log.WithField("function", "OnICECandidate").Debug("candidate gathering finished")
			return
		}
		t.log.WithFields(logrus.Fields{
			"function": "OnICECandidate",
			"type":     c.Typ.String(),
			"protocol": c.Protocol.String(),
		}).Debug("gathered candidate")
	})
	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		t.log.WithFields(logrus.Fields{
			"function": "OnDataChannel",
			"label":    dc.Label(),
		}).Debug("remote opened data channel")
		t.bind(dc)
	})

	t.pc = pc
	return pc, nil
}

func (t *PeerTransport) bind(dc *webrtc.DataChannel) {
	t.mu.Lock()
	t.dc = dc
	t.mu.Unlock()

	dc.OnOpen(func() { t.lc.opened() })
	dc.OnMessage(func(msg webrtc.DataChannelMessage) { t.lc.message(msg.Data) })
	dc.OnClose(func() { t.lc.closed() })
}

// CreateOffer opens the data channel and returns the final offer.
func (t *PeerTransport) CreateOffer(ctx context.Context) (domain.SessionDescriptor, error) {
	pc, err := t.ensurePeer()
	if err != nil {
		return domain.SessionDescriptor{}, err
	}
	dc, err := pc.CreateDataChannel(t.opts.Label, nil)
	if err != nil {
		return domain.SessionDescriptor{}, fmt.Errorf("create data channel: %w", err)
	}
	t.bind(dc)

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return domain.SessionDescriptor{}, fmt.Errorf("create offer: %w", err)
	}
	return t.finalize(ctx, pc, offer)
}

// ApplyRemote sets the peer's offer or answer.
func (t *PeerTransport) ApplyRemote(_ context.Context, remote domain.SessionDescriptor) error {
	pc, err := t.ensurePeer()
	if err != nil {
		return err
	}
	desc := webrtc.SessionDescription{Type: webrtc.NewSDPType(string(remote.Kind)), SDP: remote.SDP}
	if err := pc.SetRemoteDescription(desc); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}
	return nil
}

// CreateAnswer returns the final answer to an applied offer.
func (t *PeerTransport) CreateAnswer(ctx context.Context) (domain.SessionDescriptor, error) {
	pc, err := t.ensurePeer()
	if err != nil {
		return domain.SessionDescriptor{}, err
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return domain.SessionDescriptor{}, fmt.Errorf("create answer: %w", err)
	}
	return t.finalize(ctx, pc, answer)
}

// finalize sets desc locally and waits for candidate gathering, up to the
// configured bound. On timeout the candidates gathered so far are used.
func (t *PeerTransport) finalize(ctx context.Context, pc *webrtc.PeerConnection, desc webrtc.SessionDescription) (domain.SessionDescriptor, error) {
	gathered := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(desc); err != nil {
		return domain.SessionDescriptor{}, fmt.Errorf("set local description: %w", err)
	}

	timer := time.NewTimer(t.opts.GatherTimeout)
	defer timer.Stop()

	select {
	case <-gathered:
	case <-timer.C:
		t.log.WithFields(logrus.Fields{
			"function": "finalize",
			"timeout":  t.opts.GatherTimeout.String(),
		}).Warn("ice gathering did not finish in time; using candidates gathered so far")
	case <-ctx.Done():
		return domain.SessionDescriptor{}, ctx.Err()
	}

	local := pc.LocalDescription()
	if local == nil {
		return domain.SessionDescriptor{}, errors.New("no local description after gathering")
	}
	return domain.SessionDescriptor{Kind: domain.DescriptorKind(local.Type.String()), SDP: local.SDP}, nil
}

// Send writes one text message to the data channel.
func (t *PeerTransport) Send(data []byte) error {
	if err := t.lc.checkSend(); err != nil {
		return err
	}
	t.mu.Lock()
	dc := t.dc
	t.mu.Unlock()
	if dc == nil {
		return ErrNotOpen
	}
	if err := dc.SendText(string(data)); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

// Close tears down the data channel and peer connection. It is safe to call
// more than once and before any negotiation.
func (t *PeerTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		t.mu.Lock()
		dc, pc := t.dc, t.pc
		t.mu.Unlock()

		if dc != nil {
			_ = dc.Close()
		}
		if pc != nil {
			err = pc.Close()
		}
		t.lc.closed()
	})
	return err
}

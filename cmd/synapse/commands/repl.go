package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"synapse/internal/domain"
	"synapse/internal/protocol/e2ee"
)

const replHelp = `commands:
  start-session            become the initiator and print an offer envelope
  accept-envelope [json]   paste the peer's envelope (end with a lone ".")
  send <message>           send a message (plain lines work once connected)
  status                   show phase, channel and encryption state
  help                     show this help
  quit                     close the session and exit

once connected, any other line is sent as a message. Commands without
arguments only match on a line of their own, so "status report" is chat.`

// repl is the line-oriented chat front end. Output from session events and
// from commands is serialized through mu.
type repl struct {
	sess   domain.SessionService
	in     *bufio.Scanner
	out    io.Writer
	qr     bool
	strict bool

	mu sync.Mutex
}

func newREPL(sess domain.SessionService, in io.Reader, out io.Writer) *repl {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	return &repl{sess: sess, in: sc, out: out, strict: true}
}

func (r *repl) printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = fmt.Fprintf(r.out, format, args...)
}

func (r *repl) run(ctx context.Context) error {
	r.sess.Subscribe(r.onEvent)
	r.printf("%s\n", replHelp)

	for {
		r.printf("> ")
		if !r.in.Scan() {
			break
		}
		line := strings.TrimSpace(r.in.Text())
		if line == "" {
			continue
		}
		verb, rest, ok := parseCommand(line)
		if !ok {
			r.chat(line)
			continue
		}

		switch verb {
		case "start-session", "start":
			if text, err := r.sess.StartSession(ctx); err == nil {
				r.printEnvelope("offer", text)
			}
		case "accept-envelope", "accept":
			text, err := r.readEnvelope(rest)
			if err != nil {
				r.printf("error: %v\n", err)
				continue
			}
			if reply, err := r.sess.AcceptEnvelope(ctx, text); err == nil && reply != "" {
				r.printEnvelope("answer", reply)
			}
		case "send":
			_, _ = r.sess.Send(rest)
		case "status":
			r.printStatus()
		case "help", "?":
			r.printf("%s\n", replHelp)
		case "quit", "exit":
			return r.sess.Close()
		}
	}
	if err := r.in.Err(); err != nil {
		_ = r.sess.Close()
		return err
	}
	return r.sess.Close()
}

// parseCommand splits line into a command verb and its argument. Verbs that
// take no argument match only when they stand alone on the line.
func parseCommand(line string) (verb, rest string, ok bool) {
	verb, rest, _ = strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	switch verb {
	case "send", "accept-envelope", "accept":
		return verb, rest, true
	case "start-session", "start", "status", "help", "?", "quit", "exit":
		return verb, "", rest == ""
	}
	return "", "", false
}

// chat sends a line that is not a command, provided the channel is open.
func (r *repl) chat(line string) {
	if r.sess.Status().Channel == domain.ChannelOpen {
		_, _ = r.sess.Send(line)
		return
	}
	r.printf("unknown command %q (try help)\n", line)
}

// readEnvelope collects pasted lines, starting from whatever followed the
// command on its own line, until they form a JSON value or a lone "." ends
// the paste.
func (r *repl) readEnvelope(first string) (string, error) {
	var b strings.Builder
	if first != "" {
		b.WriteString(first)
		b.WriteByte('\n')
		if json.Valid([]byte(b.String())) {
			return b.String(), nil
		}
	} else {
		r.printf("paste the envelope, end with a lone \".\"\n")
	}
	for r.in.Scan() {
		line := r.in.Text()
		if strings.TrimSpace(line) == "." {
			break
		}
		b.WriteString(line)
		b.WriteByte('\n')
		if json.Valid([]byte(b.String())) {
			break
		}
	}
	if err := r.in.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", errors.New("no envelope pasted")
	}
	return b.String(), nil
}

func (r *repl) printEnvelope(kind, text string) {
	r.printf("\n--- %s envelope: copy everything between the markers ---\n%s\n--- end of %s ---\n", kind, text, kind)
	if !r.qr {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := renderQR(r.out, text); err != nil {
		_, _ = fmt.Fprintf(r.out, "qr: %v\n", err)
	}
}

func (r *repl) printStatus() {
	st := r.sess.Status()
	mode := "strict"
	if !r.strict {
		mode = "lenient"
	}
	enc := "inactive"
	switch st.Keys {
	case domain.KeyShared:
		enc = "active (agreed key " + st.SharedKeyFingerprint + ")"
	case domain.KeyStandalone:
		enc = "local key only " + st.SharedKeyFingerprint + " (peer cannot decrypt)"
	}
	ice := st.ICEState
	if ice == "" {
		ice = "-"
	}

	r.printf("session   %s\nprotocol  %s (%s)\nrole      %s\nphase     %s\nchannel   %s\nice       %s\ne2ee      %s\n",
		st.SessionID, st.Protocol, mode, st.Role, st.Phase, st.Channel, ice, enc)
	if st.LocalKeyFingerprint != "" || st.RemoteKeyFingerprint != "" {
		r.printf("keys      local %s, remote %s\n", orDash(st.LocalKeyFingerprint), orDash(st.RemoteKeyFingerprint))
	}
}

func (r *repl) onEvent(ev domain.Event) {
	switch ev.Kind {
	case domain.EventMessage:
		r.printf("%s\n", formatMessage(*ev.Message))
	case domain.EventPhaseChanged:
		r.printf("[phase: %s]\n", ev.Phase)
	case domain.EventConnectivity:
		r.printf("[ice: %s]\n", ev.State)
	case domain.EventError:
		r.printf("error: %v\n", ev.Err)
	}
}

func formatMessage(m domain.ChatMessage) string {
	ts := m.At.Format("15:04:05")
	switch m.Direction {
	case domain.DirectionLocal:
		if errors.Is(m.Err, e2ee.ErrNoKey) {
			return fmt.Sprintf("%s you: %s (sent without encryption key)", ts, m.Text)
		}
		return fmt.Sprintf("%s you: %s", ts, m.Text)
	case domain.DirectionRemote:
		if errors.Is(m.Err, e2ee.ErrNoKey) {
			return fmt.Sprintf("%s peer: %s (not decrypted: no key)", ts, m.Text)
		}
		return fmt.Sprintf("%s peer: %s", ts, m.Text)
	default:
		return fmt.Sprintf("%s %s", ts, m.Text)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

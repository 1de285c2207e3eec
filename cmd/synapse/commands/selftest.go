package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"synapse/internal/app"
	"synapse/internal/channel"
	"synapse/internal/domain"
)

// selftestCmd negotiates two sessions through an in-process hub using the
// configured protocol, then exchanges one message each way.
func selftestCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "selftest",
		Short: "Negotiate two local sessions and exchange a message",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return selftest(ctx, cfg, cmd.OutOrStdout())
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "give up after this long")
	return cmd
}

func selftest(ctx context.Context, c *app.Config, out io.Writer) error {
	hub := channel.NewHub()
	alice, err := app.NewWire(c, "", hub.NewTransport())
	if err != nil {
		return err
	}
	bob, err := app.NewWire(c, "", hub.NewTransport())
	if err != nil {
		return err
	}
	defer alice.Session.Close()
	defer bob.Session.Close()

	inboxA, openA := listen(alice.Session)
	inboxB, openB := listen(bob.Session)

	offer, err := alice.Session.StartSession(ctx)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	answer, err := bob.Session.AcceptEnvelope(ctx, offer)
	if err != nil {
		return fmt.Errorf("accept offer: %w", err)
	}
	if _, err := alice.Session.AcceptEnvelope(ctx, answer); err != nil {
		return fmt.Errorf("accept answer: %w", err)
	}
	for _, ch := range []<-chan struct{}{openA, openB} {
		select {
		case <-ch:
		case <-ctx.Done():
			return fmt.Errorf("waiting for channel: %w", ctx.Err())
		}
	}

	const ping, pong = "ping", "pong"
	if _, err := alice.Session.Send(ping); err != nil {
		return err
	}
	gotB, err := receive(ctx, inboxB)
	if err != nil {
		return err
	}
	if _, err := bob.Session.Send(pong); err != nil {
		return err
	}
	gotA, err := receive(ctx, inboxA)
	if err != nil {
		return err
	}

	sa, sb := alice.Session.Status(), bob.Session.Status()
	fmt.Fprintf(out, "protocol:   %s\n", sa.Protocol)
	fmt.Fprintf(out, "initiator:  phase %s, keys %s, fingerprint %s\n", sa.Phase, sa.Keys, orDash(sa.SharedKeyFingerprint))
	fmt.Fprintf(out, "responder:  phase %s, keys %s, fingerprint %s\n", sb.Phase, sb.Keys, orDash(sb.SharedKeyFingerprint))
	fmt.Fprintf(out, "a -> b:     %s\n", formatMessage(gotB))
	fmt.Fprintf(out, "b -> a:     %s\n", formatMessage(gotA))

	if gotB.Text != ping || gotA.Text != pong || gotA.Placeholder || gotB.Placeholder {
		fmt.Fprintln(out, "result:     FAIL (messages did not decrypt; keys are not shared)")
		return errors.New("selftest failed")
	}
	fmt.Fprintln(out, "result:     ok")
	return nil
}

func listen(s domain.SessionService) (<-chan domain.ChatMessage, <-chan struct{}) {
	msgs := make(chan domain.ChatMessage, 16)
	open := make(chan struct{}, 1)
	s.Subscribe(func(ev domain.Event) {
		switch ev.Kind {
		case domain.EventChannelOpen:
			select {
			case open <- struct{}{}:
			default:
			}
		case domain.EventMessage:
			if ev.Message.Direction == domain.DirectionRemote {
				select {
				case msgs <- *ev.Message:
				default:
				}
			}
		}
	})
	return msgs, open
}

func receive(ctx context.Context, ch <-chan domain.ChatMessage) (domain.ChatMessage, error) {
	select {
	case m := <-ch:
		return m, nil
	case <-ctx.Done():
		return domain.ChatMessage{}, fmt.Errorf("waiting for message: %w", ctx.Err())
	}
}

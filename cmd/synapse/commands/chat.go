package commands

import (
	"github.com/spf13/cobra"

	"synapse/internal/app"
)

// chatCmd runs an interactive session over WebRTC.
func chatCmd() *cobra.Command {
	var (
		qr         bool
		transcript string
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long: `Start an interactive chat session.

One side runs start-session and sends the printed envelope to the other side
by any means (chat, mail, QR code). The other side runs accept-envelope,
pastes it, and sends the printed answer back. Once the first side accepts the
answer the data channel opens and every line typed is sent encrypted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if transcript != "" {
				cfg.Transcript.Path = transcript
			}
			w, err := app.NewWire(cfg, passphrase, nil)
			if err != nil {
				return err
			}
			r := newREPL(w.Session, cmd.InOrStdin(), cmd.OutOrStdout())
			r.qr = qr
			r.strict = cfg.Strict
			return r.run(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&qr, "qr", false, "also render outgoing envelopes as QR codes")
	cmd.Flags().StringVar(&transcript, "transcript", "", "append a sealed transcript to this file (needs -p)")
	return cmd
}

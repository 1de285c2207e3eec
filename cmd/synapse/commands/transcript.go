package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"synapse/internal/store"
)

// transcriptCmd decrypts and prints a sealed transcript.
func transcriptCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "transcript",
		Short: "Decrypt and print a chat transcript",
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				return fmt.Errorf("passphrase required (-p)")
			}
			if file == "" {
				file = cfg.Transcript.Path
			}
			if file == "" {
				return fmt.Errorf("no transcript file: use --file or set [transcript] path")
			}

			msgs, err := store.NewTranscriptFileStore(file).LoadMessages(passphrase)
			if err != nil {
				return err
			}
			session := ""
			for _, m := range msgs {
				if m.SessionID != session {
					session = m.SessionID
					fmt.Fprintf(cmd.OutOrStdout(), "== session %s ==\n", session)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", m.At.Format("2006-01-02"), formatMessage(m))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "transcript file (default from config)")
	return cmd
}

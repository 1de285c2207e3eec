package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"synapse/internal/codec"
	"synapse/internal/crypto"
	"synapse/internal/domain"
)

// inspectCmd decodes an envelope without touching any session.
func inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [file|-]",
		Short: "Decode an envelope and describe it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				b   []byte
				err error
			)
			if len(args) == 0 || args[0] == "-" {
				b, err = io.ReadAll(cmd.InOrStdin())
			} else {
				b, err = os.ReadFile(args[0])
			}
			if err != nil {
				return err
			}

			p, err := domain.ParseProtocol(cfg.Protocol)
			if err != nil {
				return err
			}
			env, err := codec.New(p, cfg.Strict).Decode(string(b))
			if err != nil {
				return fmt.Errorf("decoding envelope: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "variant:     %s\n", env.Variant())
			fmt.Fprintf(out, "descriptor:  %s (%d sdp lines, %d candidates)\n",
				env.Descriptor.Kind, countLines(env.Descriptor.SDP), strings.Count(env.Descriptor.SDP, "a=candidate:"))
			if env.PublicKey != nil {
				fp, err := crypto.FingerprintJWK(*env.PublicKey)
				if err != nil {
					return fmt.Errorf("public key: %w", err)
				}
				fmt.Fprintf(out, "public key:  %s %s, fingerprint %s\n", env.PublicKey.Kty, env.PublicKey.Crv, fp)
			}
			return nil
		},
	}
}

func countLines(sdp string) int {
	n := 0
	for _, l := range strings.Split(sdp, "\n") {
		if strings.TrimSpace(l) != "" {
			n++
		}
	}
	return n
}

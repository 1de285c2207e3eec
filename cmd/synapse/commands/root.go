package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/carlmjohnson/versioninfo"
	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"synapse/internal/app"
)

var (
	configPath string
	passphrase string
	logLevel   string
	protocol   string
	lenient    bool

	cfg *app.Config
)

func newRoot() *cobra.Command {
	root := &cobra.Command{
		Use:          "synapse",
		Short:        "Peer-to-peer chat over manually exchanged WebRTC envelopes",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("protocol") {
				c.Protocol = protocol
			}
			if lenient {
				c.Strict = false
			}
			if logLevel != "" {
				c.Logging.Level = logLevel
			}
			if err := c.FixupAndValidate(); err != nil {
				return err
			}
			if err := app.SetupLogging(c.Logging, cmd.ErrOrStderr()); err != nil {
				return err
			}
			cfg = c
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $XDG_CONFIG_HOME/synapse/config.toml if present)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase sealing the chat transcript")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warning, error)")
	root.PersistentFlags().StringVar(&protocol, "protocol", "dh", "envelope protocol: dh or plain")
	root.PersistentFlags().BoolVar(&lenient, "lenient", false, "accept envelopes without key material")

	root.AddCommand(chatCmd(), inspectCmd(), transcriptCmd(), selftestCmd())
	return root
}

// Execute runs the CLI.
func Execute() error {
	return fang.Execute(
		context.Background(),
		newRoot(),
		fang.WithVersion(versioninfo.Short()),
	)
}

func loadConfig() (*app.Config, error) {
	path := configPath
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return app.Defaults(), nil
		}
		path = filepath.Join(dir, "synapse", "config.toml")
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return app.Defaults(), nil
		}
	}
	c, err := app.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	return c, nil
}

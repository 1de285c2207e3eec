package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"synapse/internal/channel"
	"synapse/internal/crypto"
	"synapse/internal/domain"
	"synapse/internal/protocol/keyagreement"
)

// DefaultICEServers are public STUN servers used when none are configured.
var DefaultICEServers = []string{
	"stun:stun.l.google.com:19302",
	"stun:stun1.l.google.com:19302",
	"stun:stun2.l.google.com:19302",
	"stun:stun3.l.google.com:19302",
	"stun:stun4.l.google.com:19302",
	"stun:stun.nextcloud.com:443",
	"stun:stunserver.org:3478",
}

// Logging is the logging configuration.
type Logging struct {
	// Level is one of logrus' level names. Default "warning".
	Level string `toml:"level"`
	// Format is "text" or "json".
	Format string `toml:"format"`
}

func (l *Logging) validate() error {
	if l.Level == "" {
		l.Level = "warning"
	}
	switch l.Format {
	case "":
		l.Format = "text"
	case "text", "json":
	default:
		return fmt.Errorf("config: Logging: unknown format %q", l.Format)
	}
	return nil
}

// Transcript configures the sealed chat transcript. An empty Path disables it.
type Transcript struct {
	Path string `toml:"path"`
}

// Config holds runtime wiring options for building the app.
type Config struct {
	Protocol      string        `toml:"protocol"`
	Strict        bool          `toml:"strict"`
	Suite         string        `toml:"suite"`
	KDF           string        `toml:"kdf"`
	GatherTimeout time.Duration `toml:"gather_timeout"`
	ICEServers    []string      `toml:"ice_servers"`

	Logging    *Logging    `toml:"logging"`
	Transcript *Transcript `toml:"transcript"`
}

// Defaults returns the configuration used without a config file.
func Defaults() *Config {
	return &Config{
		Protocol:      string(domain.ProtocolDH),
		Strict:        true,
		Suite:         string(crypto.SuiteAESGCM),
		KDF:           string(keyagreement.KDFHKDF),
		GatherTimeout: channel.DefaultGatherTimeout,
		ICEServers:    append([]string(nil), DefaultICEServers...),
		Logging:       &Logging{Level: "warning", Format: "text"},
		Transcript:    &Transcript{},
	}
}

// FixupAndValidate applies defaults to config entries and validates the
// supplied configuration. Most people should call one of the Load variants
// instead.
func (cfg *Config) FixupAndValidate() error {
	p, err := domain.ParseProtocol(strings.ToLower(cfg.Protocol))
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	cfg.Protocol = string(p)

	s, err := crypto.ParseSuite(strings.ToLower(cfg.Suite))
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	cfg.Suite = string(s)

	k, err := keyagreement.ParseKDF(strings.ToLower(cfg.KDF))
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	cfg.KDF = string(k)

	if cfg.GatherTimeout < 0 {
		return errors.New("config: gather_timeout must not be negative")
	}
	if cfg.GatherTimeout == 0 {
		cfg.GatherTimeout = channel.DefaultGatherTimeout
	}
	for _, u := range cfg.ICEServers {
		if !strings.HasPrefix(u, "stun:") && !strings.HasPrefix(u, "stuns:") &&
			!strings.HasPrefix(u, "turn:") && !strings.HasPrefix(u, "turns:") {
			return fmt.Errorf("config: ice_servers: unsupported URL %q", u)
		}
	}

	if cfg.Logging == nil {
		cfg.Logging = &Logging{}
	}
	if err := cfg.Logging.validate(); err != nil {
		return err
	}
	if cfg.Transcript == nil {
		cfg.Transcript = &Transcript{}
	}
	return nil
}

// Load parses and validates the provided buffer b as a config file body and
// returns the Config. Keys absent from b keep their Defaults value.
func Load(b []byte) (*Config, error) {
	if b == nil {
		return nil, errors.New("no nil buffer as config file")
	}

	cfg := Defaults()
	if err := toml.Unmarshal(b, cfg); err != nil {
		return nil, err
	}
	if err := cfg.FixupAndValidate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads, parses and validates the provided file and returns the
// Config.
func LoadFile(f string) (*Config, error) {
	b, err := os.ReadFile(f)
	if err != nil {
		return nil, err
	}
	return Load(b)
}

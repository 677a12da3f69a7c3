package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config drives the rewardhub daemon.
type Config struct {
	ListenAddress         string `toml:"ListenAddress"`
	DataDir               string `toml:"DataDir"`
	ChainID               uint64 `toml:"ChainID"`
	Environment           string `toml:"Environment"`
	OperatorKeystorePath  string `toml:"OperatorKeystorePath"`
	KeystorePassphraseEnv string `toml:"KeystorePassphraseEnv"`
}

// Default returns the configuration written on first run.
func Default() *Config {
	return &Config{
		ListenAddress:         ":8551",
		DataDir:               "./rewardhub-data",
		ChainID:               1887,
		Environment:           "local",
		OperatorKeystorePath:  "./rewardhub-data/operator.keystore",
		KeystorePassphraseEnv: "REWARDHUB_KEYSTORE_PASSPHRASE",
	}
}

// Load loads the configuration from the given path, writing defaults when the
// file does not exist yet.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields and fills safe fallbacks.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ListenAddress) == "" {
		return fmt.Errorf("config: ListenAddress required")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("config: DataDir required")
	}
	if c.ChainID == 0 {
		return fmt.Errorf("config: ChainID must be positive")
	}
	if strings.TrimSpace(c.Environment) == "" {
		c.Environment = "local"
	}
	return nil
}

func createDefault(path string) (*Config, error) {
	cfg := Default()
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

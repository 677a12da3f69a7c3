package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadParsesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `ListenAddress = "0.0.0.0:9000"
DataDir = "./state"
ChainID = 42
Environment = "staging"
OperatorKeystorePath = "./state/op.keystore"
KeystorePassphraseEnv = "OP_PASS"
`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != "0.0.0.0:9000" {
		t.Fatalf("listen address %q", cfg.ListenAddress)
	}
	if cfg.ChainID != 42 {
		t.Fatalf("chain id %d", cfg.ChainID)
	}
	if cfg.Environment != "staging" {
		t.Fatalf("environment %q", cfg.Environment)
	}
	if cfg.KeystorePassphraseEnv != "OP_PASS" {
		t.Fatalf("passphrase env %q", cfg.KeystorePassphraseEnv)
	}
}

func TestLoadWritesDefaultsOnFirstRun(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != Default().ListenAddress {
		t.Fatalf("default listen address %q", cfg.ListenAddress)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default file not written: %v", err)
	}
	// A second load reads the file just written.
	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.ChainID != cfg.ChainID {
		t.Fatalf("reload chain id %d, want %d", again.ChainID, cfg.ChainID)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.ListenAddress = " "
	if err := cfg.Validate(); err == nil {
		t.Fatal("blank listen address accepted")
	}
	cfg = Default()
	cfg.ChainID = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero chain id accepted")
	}
	cfg = Default()
	cfg.Environment = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.Environment != "local" {
		t.Fatalf("environment fallback %q", cfg.Environment)
	}
}

// Package config resolves Mastodon credentials from the environment and
// from named profiles kept in the OS keychain.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/99designs/keyring"
)

const (
	serviceName = "tusk"

	envKeyringBackend  = "TUSK_KEYRING_BACKEND"
	envKeyringPassword = "TUSK_KEYRING_PASSWORD"
	envCredentialsDir  = "TUSK_CREDENTIALS_DIR"
	envProfile         = "TUSK_PROFILE"
)

// backend is the keychain selection requested through TUSK_KEYRING_BACKEND.
type backend int

const (
	backendAuto backend = iota
	backendFile
	backendSystem
)

// openKeyring is replaced in tests to use an in-memory keyring.
var openKeyring = func(cfg keyring.Config) (keyring.Keyring, error) {
	return keyring.Open(cfg)
}

var userConfigDir = os.UserConfigDir

var stdinHasTTY = func() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// SetOpenKeyring replaces the keyring opener and returns a restore function.
func SetOpenKeyring(fn func(keyring.Config) (keyring.Keyring, error)) func() {
	original := openKeyring
	openKeyring = fn
	return func() { openKeyring = original }
}

func backendFromEnv() backend {
	switch strings.ToLower(envValue(envKeyringBackend)) {
	case "file":
		return backendFile
	case "system", "os", "native":
		return backendSystem
	}
	return backendAuto
}

// keyringConfig selects the OS keychain, with an encrypted file store as
// fallback. The file store is the only option on Linux without a session bus.
func keyringConfig() keyring.Config {
	cfg := keyring.Config{ServiceName: serviceName}

	mode := backendFromEnv()
	if mode == backendSystem {
		return cfg
	}

	cfg.FileDir = keyringFileDir()
	cfg.FilePasswordFunc = keyringFilePassword
	if fileOnly(runtime.GOOS, mode, os.Getenv("DBUS_SESSION_BUS_ADDRESS")) {
		cfg.AllowedBackends = []keyring.BackendType{keyring.FileBackend}
	}
	return cfg
}

func fileOnly(goos string, mode backend, dbusAddr string) bool {
	switch mode {
	case backendFile:
		return true
	case backendAuto:
		return goos == "linux" && strings.TrimSpace(dbusAddr) == ""
	}
	return false
}

// keyringFileDir is $TUSK_CREDENTIALS_DIR/keyring, else <user config>/tusk/keyring.
func keyringFileDir() string {
	if dir := envValue(envCredentialsDir); dir != "" {
		return filepath.Join(dir, "keyring")
	}
	if dir, err := userConfigDir(); err == nil && strings.TrimSpace(dir) != "" {
		return filepath.Join(dir, serviceName, "keyring")
	}
	if home, err := os.UserHomeDir(); err == nil && strings.TrimSpace(home) != "" {
		return filepath.Join(home, ".config", serviceName, "keyring")
	}
	return filepath.Join(os.TempDir(), serviceName, "keyring")
}

func keyringFilePassword(prompt string) (string, error) {
	if value := envValue(envKeyringPassword); value != "" {
		return value, nil
	}
	if !stdinHasTTY() {
		return "", fmt.Errorf("%s must be set to unlock the file keyring without a terminal", envKeyringPassword)
	}
	return keyring.TerminalPrompt(prompt)
}

// envValue returns the trimmed value of key.
func envValue(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

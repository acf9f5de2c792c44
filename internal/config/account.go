package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/skullzarmy/Tusk/internal/api"
)

const (
	envAPIURL            = "TUSK_API_URL"
	envAccessToken       = "TUSK_ACCESS_TOKEN"
	envAccessTokenSecret = "TUSK_ACCESS_TOKEN_SECRET"
	envConsumerKey       = "TUSK_CONSUMER_KEY"
	envConsumerSecret    = "TUSK_CONSUMER_SECRET"
	envTimeoutMS         = "TUSK_TIMEOUT_MS"
	envFingerprints      = "TUSK_TRUSTED_CERT_FINGERPRINTS"
	envAuthMode          = "TUSK_AUTH_MODE"
)

// Account holds the Mastodon connection details stored in a profile.
type Account struct {
	APIURL                  string   `json:"api_url"`
	AccessToken             string   `json:"access_token"`
	AccessTokenSecret       string   `json:"access_token_secret,omitempty"`
	ConsumerKey             string   `json:"consumer_key,omitempty"`
	ConsumerSecret          string   `json:"consumer_secret,omitempty"`
	TimeoutMS               int      `json:"timeout_ms,omitempty"`
	TrustedCertFingerprints []string `json:"trusted_cert_fingerprints,omitempty"`
	AuthMode                string   `json:"auth_mode,omitempty"`
}

// Validate checks the account can build a client.
func (a Account) Validate() error {
	cfg, err := a.APIConfig()
	if err != nil {
		return err
	}
	return cfg.Validate()
}

// APIConfig converts the stored account into client configuration.
func (a Account) APIConfig() (api.Config, error) {
	if a.TimeoutMS < 0 {
		return api.Config{}, api.ErrInvalidTimeout
	}
	return api.Config{
		ConsumerKey:             a.ConsumerKey,
		ConsumerSecret:          a.ConsumerSecret,
		AccessToken:             a.AccessToken,
		AccessTokenSecret:       a.AccessTokenSecret,
		APIURL:                  a.APIURL,
		Timeout:                 time.Duration(a.TimeoutMS) * time.Millisecond,
		TrustedCertFingerprints: a.TrustedCertFingerprints,
		Mode:                    api.AuthMode(strings.ToLower(a.AuthMode)),
	}, nil
}

// accountFromEnv builds an account when TUSK_ACCESS_TOKEN is exported.
// ok is false when the environment does not configure credentials.
func accountFromEnv() (Account, bool, error) {
	token := strings.TrimSpace(os.Getenv(envAccessToken))
	if token == "" {
		return Account{}, false, nil
	}
	account := Account{
		APIURL:            strings.TrimSpace(os.Getenv(envAPIURL)),
		AccessToken:       token,
		AccessTokenSecret: strings.TrimSpace(os.Getenv(envAccessTokenSecret)),
		ConsumerKey:       strings.TrimSpace(os.Getenv(envConsumerKey)),
		ConsumerSecret:    strings.TrimSpace(os.Getenv(envConsumerSecret)),
		AuthMode:          strings.TrimSpace(os.Getenv(envAuthMode)),
	}
	if raw := strings.TrimSpace(os.Getenv(envTimeoutMS)); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err != nil || ms < 0 {
			return Account{}, true, fmt.Errorf("%s must be a non-negative integer", envTimeoutMS)
		}
		account.TimeoutMS = ms
	}
	account.TrustedCertFingerprints = splitList(os.Getenv(envFingerprints))
	return account, true, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Overrides are command-line settings applied on top of the resolved account.
type Overrides struct {
	Profile     string
	APIURL      string
	AccessToken string
	Timeout     time.Duration
	MaxRetries  int
	RetryDelay  time.Duration
}

// Resolve returns the client configuration for the active credentials with
// overrides applied. An explicit access token needs no stored profile.
func Resolve(o Overrides) (api.Config, error) {
	var (
		account Account
		err     error
	)
	if o.Profile != "" {
		account, err = LoadProfile(o.Profile)
	} else {
		account, err = LoadAccount()
	}
	if err != nil && !(errors.Is(err, ErrNotConfigured) && o.AccessToken != "") {
		return api.Config{}, err
	}

	cfg, err := account.APIConfig()
	if err != nil {
		return api.Config{}, err
	}
	if o.APIURL != "" {
		cfg.APIURL = o.APIURL
	}
	if o.AccessToken != "" {
		cfg.AccessToken = o.AccessToken
	}
	if o.Timeout > 0 {
		cfg.Timeout = o.Timeout
	}
	if o.MaxRetries > 0 {
		cfg.MaxRetries = o.MaxRetries
	}
	if o.RetryDelay > 0 {
		cfg.RetryDelay = o.RetryDelay
	}
	if err := cfg.Validate(); err != nil {
		return api.Config{}, err
	}
	return cfg, nil
}

package api

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"
)

const (
	DefaultAPIURL    = "https://mastodon.social/api/v1/"
	DefaultUserAgent = "tusk-mastodon-client"
	DefaultTimeout   = 30 * time.Second
)

var (
	ErrMissingAccessToken  = errors.New("config must include `access_token` when using user auth")
	ErrMissingConsumerKey  = errors.New("config must include `consumer_key` and `consumer_secret` when using signed auth")
	ErrInvalidTimeout      = errors.New("config parameter `timeout_ms` must be a non-negative number")
	ErrUnsupportedAuthMode = errors.New("config parameter `auth_mode` must be \"bearer\" or \"signed\"")
	ErrInvalidAPIURL       = errors.New("config parameter `api_url` must be an absolute http(s) URL")
)

// Config holds the credentials and connection settings of a Client.
//
// Timeout applies to each attempt; zero means DefaultTimeout. MaxRetries and
// RetryDelay override the environment retry policy when set.
type Config struct {
	ConsumerKey             string
	ConsumerSecret          string
	AccessToken             string
	AccessTokenSecret       string
	APIURL                  string
	Timeout                 time.Duration
	TrustedCertFingerprints []string
	Mode                    AuthMode
	MaxRetries              int
	RetryDelay              time.Duration
}

// Credentials are the fields SetAuth may change. Empty fields are ignored.
type Credentials struct {
	ConsumerKey       string
	ConsumerSecret    string
	AccessToken       string
	AccessTokenSecret string
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.APIURL) == "" {
		c.APIURL = DefaultAPIURL
	}
	if c.Mode == "" {
		c.Mode = AuthBearer
	}
	c.TrustedCertFingerprints = slices.Clone(c.TrustedCertFingerprints)
	return c
}

// Validate checks that the configuration can authenticate requests.
func (c Config) Validate() error {
	if c.Timeout < 0 {
		return ErrInvalidTimeout
	}
	switch c.Mode {
	case "", AuthBearer:
	case AuthSigned:
		if c.ConsumerKey == "" || c.ConsumerSecret == "" {
			return ErrMissingConsumerKey
		}
	default:
		return ErrUnsupportedAuthMode
	}
	if c.AccessToken == "" {
		return ErrMissingAccessToken
	}
	if c.APIURL != "" {
		u, err := url.Parse(c.APIURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: %q", ErrInvalidAPIURL, c.APIURL)
		}
	}
	return nil
}

func (c Config) merge(creds Credentials) Config {
	if creds.ConsumerKey != "" {
		c.ConsumerKey = creds.ConsumerKey
	}
	if creds.ConsumerSecret != "" {
		c.ConsumerSecret = creds.ConsumerSecret
	}
	if creds.AccessToken != "" {
		c.AccessToken = creds.AccessToken
	}
	if creds.AccessTokenSecret != "" {
		c.AccessTokenSecret = creds.AccessTokenSecret
	}
	return c
}

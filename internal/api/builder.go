package api

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"
)

var absoluteURLPattern = regexp.MustCompile(`(?i)^https?://`)

// RequestDescriptor is a fully resolved request, built once per call and
// replayed on every attempt.
type RequestDescriptor struct {
	Method              string
	URL                 string
	Header              http.Header
	Body                []byte
	Encoding            BodyEncoding
	Timeout             time.Duration
	Auth                Authenticator
	Retry               RetryPolicy
	TrustedFingerprints []string
}

// BuildRequest resolves method, path template and params into a request.
// params is never modified.
func (c *Client) BuildRequest(method, path string, params *Params) (*RequestDescriptor, error) {
	p := params.Clone()

	opts, err := p.takeRetryOptions()
	if err != nil {
		return nil, newError(KindInvalidOptions, err.Error(), err)
	}

	resolved, err := substitutePathParams(path, p)
	if err != nil {
		var missing *MissingParameterError
		if errors.As(err, &missing) {
			return nil, newMissingParameterError(missing)
		}
		return nil, err
	}

	cfg := c.Auth()

	var target string
	encoding := EncodingQuery
	if absoluteURLPattern.MatchString(resolved) {
		target = resolved
	} else {
		target = joinURL(cfg.APIURL, resolved)
		encoding = classifyPath(resolved)
	}
	if p.hasFile() {
		encoding = EncodingMultipart
	}

	if encoding == EncodingQuery {
		if query := EncodeQuery(p); query != "" {
			sep := "?"
			if strings.Contains(target, "?") {
				sep = "&"
			}
			target += sep + query
		}
	}

	body, err := encodeBody(encoding, p)
	if err != nil {
		return nil, newError(KindInvalidOptions, err.Error(), err)
	}

	header := http.Header{}
	header.Set("Accept", "*/*")
	header.Set("User-Agent", c.userAgent())
	if body.contentType != "" {
		header.Set("Content-Type", body.contentType)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &RequestDescriptor{
		Method:              method,
		URL:                 target,
		Header:              header,
		Body:                body.data,
		Encoding:            encoding,
		Timeout:             timeout,
		Auth:                c.authenticator(cfg, body),
		Retry:               c.Retry.withOverrides(opts).normalized(),
		TrustedFingerprints: cfg.TrustedCertFingerprints,
	}, nil
}

func (c *Client) authenticator(cfg Config, body encodedBody) Authenticator {
	if cfg.Mode != AuthSigned {
		return bearerAuth{token: cfg.AccessToken}
	}
	return &oauth1Signer{
		consumerKey:    cfg.ConsumerKey,
		consumerSecret: cfg.ConsumerSecret,
		token:          cfg.AccessToken,
		tokenSecret:    cfg.AccessTokenSecret,
		form:           body.form,
		now: func() time.Time {
			return c.clock.adjust(c.now())
		},
		nonce: c.nonce,
	}
}

func (c *Client) userAgent() string {
	if c.UserAgent != "" {
		return c.UserAgent
	}
	return DefaultUserAgent
}

// joinURL joins base and path with exactly one slash.
func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

package api

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// AuthMode selects how requests are authenticated.
type AuthMode string

const (
	// AuthBearer sends the access token as a bearer token.
	AuthBearer AuthMode = "bearer"
	// AuthSigned signs every request with OAuth 1.0a HMAC-SHA1.
	AuthSigned AuthMode = "signed"
)

// Authenticator adds credentials to an outgoing request. It is called once
// per attempt, so time-sensitive values are fresh on retries.
type Authenticator interface {
	Authenticate(req *http.Request) error
}

type bearerAuth struct {
	token string
}

func (a bearerAuth) Authenticate(req *http.Request) error {
	req.Header.Set("Authorization", "Bearer "+a.token)
	return nil
}

// oauth1Signer implements RFC 5849 HMAC-SHA1 signatures. form holds the
// urlencoded body parameters, which take part in the signature base string.
type oauth1Signer struct {
	consumerKey    string
	consumerSecret string
	token          string
	tokenSecret    string
	form           url.Values
	now            func() time.Time
	nonce          func() string
}

func (s *oauth1Signer) Authenticate(req *http.Request) error {
	oauthParams := map[string]string{
		"oauth_consumer_key":     s.consumerKey,
		"oauth_nonce":            s.nonce(),
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        strconv.FormatInt(s.now().Unix(), 10),
		"oauth_version":          "1.0",
	}
	if s.token != "" {
		oauthParams["oauth_token"] = s.token
	}
	oauthParams["oauth_signature"] = s.sign(req.Method, req.URL, oauthParams)
	req.Header.Set("Authorization", authorizationHeader(oauthParams))
	return nil
}

func (s *oauth1Signer) sign(method string, u *url.URL, oauthParams map[string]string) string {
	key := oauthEscape(s.consumerSecret) + "&" + oauthEscape(s.tokenSecret)
	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(signatureBase(method, u, s.form, oauthParams)))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// signatureBase builds the RFC 5849 section 3.4.1 base string.
func signatureBase(method string, u *url.URL, form url.Values, oauthParams map[string]string) string {
	type pair struct{ k, v string }
	var pairs []pair
	add := func(k, v string) {
		pairs = append(pairs, pair{oauthEscape(k), oauthEscape(v)})
	}
	for k, vs := range u.Query() {
		for _, v := range vs {
			add(k, v)
		}
	}
	for k, vs := range form {
		for _, v := range vs {
			add(k, v)
		}
	}
	for k, v := range oauthParams {
		if k == "oauth_signature" {
			continue
		}
		add(k, v)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].k != pairs[j].k {
			return pairs[i].k < pairs[j].k
		}
		return pairs[i].v < pairs[j].v
	})

	normalized := make([]string, len(pairs))
	for i, p := range pairs {
		normalized[i] = p.k + "=" + p.v
	}
	return strings.ToUpper(method) + "&" + oauthEscape(baseStringURI(u)) + "&" + oauthEscape(strings.Join(normalized, "&"))
}

func baseStringURI(u *url.URL) string {
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	if port := u.Port(); port != "" && !(scheme == "http" && port == "80") && !(scheme == "https" && port == "443") {
		host += ":" + port
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return scheme + "://" + host + path
}

func authorizationHeader(oauthParams map[string]string) string {
	keys := make([]string, 0, len(oauthParams))
	for k := range oauthParams {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf(`%s="%s"`, oauthEscape(k), oauthEscape(oauthParams[k])))
	}
	return "OAuth " + strings.Join(parts, ", ")
}

// oauthEscape percent-encodes everything except the RFC 3986 unreserved set.
func oauthEscape(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	return 'A' <= c && c <= 'Z' || 'a' <= c && c <= 'z' || '0' <= c && c <= '9' ||
		c == '-' || c == '.' || c == '_' || c == '~'
}

// authTransport applies an Authenticator to a copy of every outgoing request.
type authTransport struct {
	auth Authenticator
	base http.RoundTripper
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.auth == nil {
		return t.base.RoundTrip(req)
	}
	r := req.Clone(req.Context())
	if err := t.auth.Authenticate(r); err != nil {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, fmt.Errorf("failed to authenticate request: %w", err)
	}
	return t.base.RoundTrip(r)
}

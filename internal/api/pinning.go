package api

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
)

const (
	unsignedPeerReason   = "The peer certificate was not signed; the server may be using a self-signed certificate"
	untrustedPeerReason  = "Certificate untrusted"
	fingerprintSeparator = ":"
)

// pinningTransport rejects responses whose leaf certificate fingerprint is not
// in the trusted set. SHA-1 and SHA-256 fingerprints are both accepted, in
// any case and with or without colons.
type pinningTransport struct {
	base    http.RoundTripper
	trusted map[string]struct{}
	display []string
}

func newPinningTransport(base http.RoundTripper, fingerprints []string) http.RoundTripper {
	if len(fingerprints) == 0 {
		return base
	}
	t := &pinningTransport{
		base:    base,
		trusted: make(map[string]struct{}, len(fingerprints)),
	}
	for _, fp := range fingerprints {
		normalized := normalizeFingerprint(fp)
		if normalized == "" {
			continue
		}
		t.trusted[normalized] = struct{}{}
		t.display = append(t.display, formatFingerprint(normalized))
	}
	return t
}

func (t *pinningTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		if caRejected(err) {
			return nil, &CertificateTrustError{Reason: unsignedPeerReason, cause: err}
		}
		return nil, err
	}
	if err := t.verify(resp.TLS); err != nil {
		_ = resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

func (t *pinningTransport) verify(state *tls.ConnectionState) error {
	if state == nil || len(state.VerifiedChains) == 0 || len(state.PeerCertificates) == 0 {
		return &CertificateTrustError{Reason: unsignedPeerReason}
	}
	leaf := state.PeerCertificates[0].Raw
	sum1 := sha1.Sum(leaf)
	sum256 := sha256.Sum256(leaf)
	fp1 := strings.ToUpper(hex.EncodeToString(sum1[:]))
	fp256 := strings.ToUpper(hex.EncodeToString(sum256[:]))
	if _, ok := t.trusted[fp1]; ok {
		return nil
	}
	if _, ok := t.trusted[fp256]; ok {
		return nil
	}
	return &CertificateTrustError{
		Reason:      untrustedPeerReason,
		Fingerprint: formatFingerprint(fp256),
		Trusted:     t.display,
	}
}

// caRejected reports whether the handshake failed because no trusted CA
// signed the peer certificate.
func caRejected(err error) bool {
	var verifyErr *tls.CertificateVerificationError
	var authorityErr x509.UnknownAuthorityError
	return errors.As(err, &verifyErr) || errors.As(err, &authorityErr)
}

// CertificateFingerprint returns the colon separated SHA-256 fingerprint of a
// DER encoded certificate.
func CertificateFingerprint(der []byte) string {
	sum := sha256.Sum256(der)
	return formatFingerprint(strings.ToUpper(hex.EncodeToString(sum[:])))
}

func normalizeFingerprint(fp string) string {
	r := strings.NewReplacer(fingerprintSeparator, "", " ", "", "-", "")
	return strings.ToUpper(r.Replace(strings.TrimSpace(fp)))
}

func formatFingerprint(hexDigits string) string {
	var b strings.Builder
	for i := 0; i+1 < len(hexDigits); i += 2 {
		if i > 0 {
			b.WriteString(fingerprintSeparator)
		}
		b.WriteString(hexDigits[i : i+2])
	}
	return b.String()
}

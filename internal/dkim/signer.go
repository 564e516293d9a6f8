// Package dkim signs outbound messages and verifies its own signatures
// before release. A missing key degrades to unsigned sending; a signature
// that fails self-verification is a fatal configuration error, because mail
// signed with broken key material damages deliverability silently.
package dkim

import (
	"bytes"
	"crypto"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	msgdkim "github.com/emersion/go-msgauth/dkim"
)

var (
	// ErrVerificationFailed means the signer produced a signature its own
	// public key cannot validate. Sending must stop until the key material
	// is fixed.
	ErrVerificationFailed = errors.New("dkim: self-verification failed")
)

// DefaultSelector is used when no selector is configured.
const DefaultSelector = "default"

// signedHeaders is the fixed header set covered by every signature.
var signedHeaders = []string{"From", "To", "Subject", "Date", "Message-ID"}

// Signer holds the signing identity. A Signer without a key is valid and
// operates in degraded (unsigned) mode.
type Signer struct {
	domain    string
	selector  string
	key       *rsa.PrivateKey
	txtRecord string
}

// NewSigner builds a signer for domain with the given key. key may be nil
// for degraded mode.
func NewSigner(domain, selector string, key *rsa.PrivateKey) (*Signer, error) {
	if selector == "" {
		selector = DefaultSelector
	}
	s := &Signer{domain: domain, selector: selector}
	if key != nil {
		pub, err := x509.MarshalPKIXPublicKey(key.Public())
		if err != nil {
			return nil, fmt.Errorf("dkim: marshal public key: %w", err)
		}
		s.key = key
		s.txtRecord = "v=DKIM1; k=rsa; p=" + base64.StdEncoding.EncodeToString(pub)
	}
	return s, nil
}

// Enabled reports whether a signing key is loaded.
func (s *Signer) Enabled() bool { return s.key != nil }

// Domain returns the signing domain.
func (s *Signer) Domain() string { return s.domain }

// Selector returns the DNS selector the public key is published under.
func (s *Signer) Selector() string { return s.selector }

// Sign signs msg and returns the signed message plus whether a signature was
// applied. With no key configured the message comes back unchanged and
// signed=false; the caller decides how loudly to warn.
//
// Every signature is verified against the signer's own public key before the
// message is released. ErrVerificationFailed is not retryable.
func (s *Signer) Sign(msg []byte) ([]byte, bool, error) {
	if s.key == nil {
		return msg, false, nil
	}

	opts := &msgdkim.SignOptions{
		Domain:                 s.domain,
		Selector:               s.selector,
		Signer:                 s.key,
		HeaderKeys:             signedHeaders,
		Hash:                   crypto.SHA256,
		HeaderCanonicalization: msgdkim.CanonicalizationRelaxed,
		BodyCanonicalization:   msgdkim.CanonicalizationRelaxed,
	}

	var buf bytes.Buffer
	if err := msgdkim.Sign(&buf, bytes.NewReader(msg), opts); err != nil {
		return nil, false, fmt.Errorf("dkim: sign: %w", err)
	}
	signed := buf.Bytes()

	if err := s.selfVerify(signed); err != nil {
		return nil, false, err
	}
	return signed, true, nil
}

// selfVerify replays verification against the in-memory public key record,
// with DNS taken out of the loop.
func (s *Signer) selfVerify(signed []byte) error {
	verifications, err := msgdkim.VerifyWithOptions(bytes.NewReader(signed), &msgdkim.VerifyOptions{
		LookupTXT: s.lookupTXT,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}
	if len(verifications) == 0 {
		return ErrVerificationFailed
	}
	for _, v := range verifications {
		if v.Err != nil {
			return fmt.Errorf("%w: %v", ErrVerificationFailed, v.Err)
		}
	}
	return nil
}

func (s *Signer) lookupTXT(name string) ([]string, error) {
	want := s.selector + "._domainkey." + s.domain
	if !strings.EqualFold(strings.TrimSuffix(name, "."), want) {
		return nil, fmt.Errorf("dkim: unexpected record lookup %q", name)
	}
	return []string{s.txtRecord}, nil
}

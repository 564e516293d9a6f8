package dkim

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

// LoadSigner reads a PEM private key from keyPath. A missing or empty path
// yields a degraded signer rather than an error: an operator who has not
// provisioned a key yet still gets mail out, unsigned and logged.
func LoadSigner(domain, selector, keyPath string) (*Signer, error) {
	if keyPath == "" {
		return NewSigner(domain, selector, nil)
	}
	data, err := os.ReadFile(keyPath)
	if errors.Is(err, os.ErrNotExist) {
		return NewSigner(domain, selector, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("dkim: read key %s: %w", keyPath, err)
	}
	key, err := ParsePrivateKey(data)
	if err != nil {
		return nil, err
	}
	return NewSigner(domain, selector, key)
}

// ParsePrivateKey accepts PKCS#1 and PKCS#8 PEM-encoded RSA keys.
func ParsePrivateKey(pemData []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, errors.New("dkim: no PEM block in key material")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	keyAny, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("dkim: parse private key: %w", err)
	}
	rsaKey, ok := keyAny.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("dkim: private key is not RSA")
	}
	return rsaKey, nil
}

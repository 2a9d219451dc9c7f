package gateway

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
)

// PasswordEncoder transforms a password before it leaves the process.
type PasswordEncoder func(password string) (string, error)

// PlainPassword sends the password unchanged. Transport security is the
// caller's TLS configuration.
func PlainPassword(password string) (string, error) {
	return password, nil
}

// RSAPasswordEncoder encrypts passwords with the backend's RSA public key
// (PKCS#1 v1.5) and base64-encodes the ciphertext. publicKeyPEM may hold a
// PKIX "PUBLIC KEY" or a PKCS#1 "RSA PUBLIC KEY" block.
func RSAPasswordEncoder(publicKeyPEM []byte) (PasswordEncoder, error) {
	block, _ := pem.Decode(publicKeyPEM)
	if block == nil {
		return nil, errors.New("gateway: no PEM block in public key")
	}

	var pub *rsa.PublicKey
	switch block.Type {
	case "RSA PUBLIC KEY":
		key, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("gateway: parse pkcs1 public key: %w", err)
		}
		pub = key
	default:
		key, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("gateway: parse public key: %w", err)
		}
		rsaKey, ok := key.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("gateway: public key is %T, want RSA", key)
		}
		pub = rsaKey
	}

	return func(password string) (string, error) {
		ct, err := rsa.EncryptPKCS1v15(rand.Reader, pub, []byte(password))
		if err != nil {
			return "", err
		}
		return base64.StdEncoding.EncodeToString(ct), nil
	}, nil
}

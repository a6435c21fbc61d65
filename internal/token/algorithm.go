// Package token issues and parses the signed bearer tokens of the API.
//
// Two algorithms are supported: HS256 signs with a shared secret, RS256 signs
// with a private key and verifies with its public key. The caller always
// names the algorithm; it is never taken from the token itself.
package token

import (
	"errors"
	"fmt"

	"github.com/lestrrat-go/jwx/v2/jwa"
)

// Algorithm is a supported signing algorithm.
type Algorithm string

// Supported algorithms.
const (
	HS256 Algorithm = "HS256"
	RS256 Algorithm = "RS256"
)

var (
	// ErrConfiguration marks key or algorithm problems that no request can fix.
	ErrConfiguration = errors.New("token: configuration error")
	// ErrUnsupportedAlgorithm is returned for algorithms other than HS256 and RS256.
	ErrUnsupportedAlgorithm = fmt.Errorf("%w: unsupported algorithm", ErrConfiguration)
	// ErrMissingKey is returned when the key material for an algorithm is absent.
	ErrMissingKey = fmt.Errorf("%w: missing key material", ErrConfiguration)
	// ErrInvalidToken is returned for malformed tokens and bad signatures.
	ErrInvalidToken = errors.New("invalid authentication token")
	// ErrExpiredToken is returned once the token's expiry has been reached.
	ErrExpiredToken = errors.New("the authentication token has expired")
)

// ParseAlgorithm returns the Algorithm named by s.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(s) {
	case HS256, RS256:
		return Algorithm(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, s)
}

func (a Algorithm) signature() (jwa.SignatureAlgorithm, error) {
	switch a {
	case HS256:
		return jwa.HS256, nil
	case RS256:
		return jwa.RS256, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, string(a))
}

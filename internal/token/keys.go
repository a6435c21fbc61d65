package token

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// KeyConfig locates the key material.
type KeyConfig struct {
	Secret         string
	PrivateKeyPath string
	PublicKeyPath  string
}

// KeyMaterial holds the parsed keys. It is loaded once and never modified.
type KeyMaterial struct {
	secret       []byte
	privateKey   jwk.Key
	publicKey    jwk.Key
	publicKeyPEM []byte
}

// LoadKeyMaterial reads the key files named in cfg. Empty paths are
// allowed; using RS256 without keys fails later with ErrMissingKey.
func LoadKeyMaterial(cfg KeyConfig) (KeyMaterial, error) {
	var privatePEM, publicPEM []byte
	var err error
	if cfg.PrivateKeyPath != "" {
		if privatePEM, err = os.ReadFile(cfg.PrivateKeyPath); err != nil {
			return KeyMaterial{}, fmt.Errorf("%w: read private key: %v", ErrConfiguration, err)
		}
	}
	if cfg.PublicKeyPath != "" {
		if publicPEM, err = os.ReadFile(cfg.PublicKeyPath); err != nil {
			return KeyMaterial{}, fmt.Errorf("%w: read public key: %v", ErrConfiguration, err)
		}
	}
	return NewKeyMaterial([]byte(cfg.Secret), privatePEM, publicPEM)
}

// NewKeyMaterial parses PEM encoded RSA keys. When only the private key is
// given the public key is derived from it.
func NewKeyMaterial(secret, privatePEM, publicPEM []byte) (KeyMaterial, error) {
	km := KeyMaterial{}
	if len(secret) > 0 {
		km.secret = append([]byte(nil), secret...)
	}
	if len(privatePEM) > 0 {
		key, err := parseRSAKey(privatePEM, true)
		if err != nil {
			return KeyMaterial{}, err
		}
		km.privateKey = key
	}
	if len(publicPEM) > 0 {
		key, err := parseRSAKey(publicPEM, false)
		if err != nil {
			return KeyMaterial{}, err
		}
		km.publicKey = key
		km.publicKeyPEM = append([]byte(nil), publicPEM...)
	} else if km.privateKey != nil {
		pub, err := jwk.PublicKeyOf(km.privateKey)
		if err != nil {
			return KeyMaterial{}, fmt.Errorf("%w: derive public key: %v", ErrConfiguration, err)
		}
		encoded, err := encodePublicKey(pub)
		if err != nil {
			return KeyMaterial{}, err
		}
		km.publicKey = pub
		km.publicKeyPEM = encoded
	}
	return km, nil
}

// PublicKeyPEM returns the PEM encoded public key, or nil when none is configured.
func (km KeyMaterial) PublicKeyPEM() []byte {
	if len(km.publicKeyPEM) == 0 {
		return nil
	}
	return append([]byte(nil), km.publicKeyPEM...)
}

func (km KeyMaterial) signingKey(alg Algorithm) (any, error) {
	switch alg {
	case HS256:
		if len(km.secret) == 0 {
			return nil, fmt.Errorf("%w: no HS256 secret", ErrMissingKey)
		}
		return km.secret, nil
	case RS256:
		if km.privateKey == nil {
			return nil, fmt.Errorf("%w: no RS256 private key", ErrMissingKey)
		}
		return km.privateKey, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, string(alg))
}

func (km KeyMaterial) verificationKey(alg Algorithm) (any, error) {
	switch alg {
	case HS256:
		return km.signingKey(alg)
	case RS256:
		if km.publicKey == nil {
			return nil, fmt.Errorf("%w: no RS256 public key", ErrMissingKey)
		}
		return km.publicKey, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, string(alg))
}

func parseRSAKey(data []byte, private bool) (jwk.Key, error) {
	key, err := jwk.ParseKey(data, jwk.WithPEM(true))
	if err != nil {
		return nil, fmt.Errorf("%w: parse key: %v", ErrConfiguration, err)
	}
	if key.KeyType() != jwa.RSA {
		return nil, fmt.Errorf("%w: expected an RSA key, got %s", ErrConfiguration, key.KeyType())
	}
	if _, isPrivate := key.(jwk.RSAPrivateKey); isPrivate != private {
		return nil, fmt.Errorf("%w: unexpected key kind (private=%t)", ErrConfiguration, isPrivate)
	}
	return key, nil
}

func encodePublicKey(key jwk.Key) ([]byte, error) {
	var raw any
	if err := key.Raw(&raw); err != nil {
		return nil, fmt.Errorf("%w: raw public key: %v", ErrConfiguration, err)
	}
	der, err := x509.MarshalPKIXPublicKey(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal public key: %v", ErrConfiguration, err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Claim names used in the token payload.
const (
	ClaimUserID = "user_id"
	ClaimRoles  = "roles"
)

// Payload is the decoded content of a token.
type Payload struct {
	UserID int64
	Roles  []string
	// ExpiresAt is nil for tokens with unlimited lifetime.
	ExpiresAt *time.Time
}

// Codec issues and parses tokens. It holds no mutable state and is safe for
// concurrent use.
type Codec struct {
	keys  KeyMaterial
	clock clock.Clock
}

// NewCodec returns a Codec using keys. A nil clk means the wall clock.
func NewCodec(keys KeyMaterial, clk clock.Clock) *Codec {
	if clk == nil {
		clk = clock.WallClock
	}
	return &Codec{keys: keys, clock: clk}
}

// PublicKeyPEM returns the public key relying parties verify RS256 tokens with.
func (c *Codec) PublicKeyPEM() []byte {
	return c.keys.PublicKeyPEM()
}

// Issue signs a token for userID. An expiry of zero gives a token with
// unlimited lifetime; otherwise the token expires no earlier than expiry
// after its issue time, rounded up to the next whole second.
func (c *Codec) Issue(userID int64, roles []string, expiry time.Duration, alg Algorithm) (string, error) {
	sigAlg, err := alg.signature()
	if err != nil {
		return "", err
	}
	key, err := c.keys.signingKey(alg)
	if err != nil {
		return "", err
	}
	if expiry < 0 {
		return "", fmt.Errorf("token: negative expiry %s", expiry)
	}

	now := c.clock.Now()
	builder := jwt.NewBuilder().
		Claim(ClaimUserID, strconv.FormatInt(userID, 10)).
		IssuedAt(now.Truncate(time.Second)).
		JwtID(uuid.NewString())
	if len(roles) > 0 {
		builder = builder.Claim(ClaimRoles, append([]string(nil), roles...))
	}
	if expiry > 0 {
		builder = builder.Expiration(ceilSecond(now.Add(expiry)))
	}
	tok, err := builder.Build()
	if err != nil {
		return "", fmt.Errorf("token: build: %w", err)
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(sigAlg, key))
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return string(signed), nil
}

// ceilSecond rounds t up to a whole second. The exp claim has second
// precision and must never fall before the requested lifetime ends.
func ceilSecond(t time.Time) time.Time {
	floor := t.Truncate(time.Second)
	if floor.Equal(t) {
		return t
	}
	return floor.Add(time.Second)
}

// Parse verifies raw with the key of alg and returns its payload. The token
// header must name exactly alg.
func (c *Codec) Parse(raw string, alg Algorithm) (Payload, error) {
	sigAlg, err := alg.signature()
	if err != nil {
		return Payload{}, err
	}
	key, err := c.keys.verificationKey(alg)
	if err != nil {
		return Payload{}, err
	}

	msg, err := jws.Parse([]byte(raw))
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	sigs := msg.Signatures()
	if len(sigs) != 1 || sigs[0].ProtectedHeaders().Algorithm() != sigAlg {
		return Payload{}, fmt.Errorf("%w: algorithm mismatch", ErrInvalidToken)
	}

	tok, err := jwt.Parse([]byte(raw),
		jwt.WithKey(sigAlg, key),
		jwt.WithClock(c.clock),
		jwt.WithAcceptableSkew(0),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired()) {
			return Payload{}, ErrExpiredToken
		}
		return Payload{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return payloadOf(tok)
}

func payloadOf(tok jwt.Token) (Payload, error) {
	rawID, ok := tok.Get(ClaimUserID)
	if !ok {
		return Payload{}, fmt.Errorf("%w: no %s claim", ErrInvalidToken, ClaimUserID)
	}
	userID, err := parseUserID(rawID)
	if err != nil {
		return Payload{}, err
	}
	p := Payload{UserID: userID}
	if rawRoles, ok := tok.Get(ClaimRoles); ok {
		roles, err := parseRoles(rawRoles)
		if err != nil {
			return Payload{}, err
		}
		p.Roles = roles
	}
	if exp := tok.Expiration(); !exp.IsZero() {
		p.ExpiresAt = &exp
	}
	return p, nil
}

func parseUserID(v any) (int64, error) {
	switch id := v.(type) {
	case string:
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: malformed %s claim", ErrInvalidToken, ClaimUserID)
		}
		return n, nil
	case float64:
		if id != float64(int64(id)) {
			return 0, fmt.Errorf("%w: malformed %s claim", ErrInvalidToken, ClaimUserID)
		}
		return int64(id), nil
	}
	return 0, fmt.Errorf("%w: malformed %s claim", ErrInvalidToken, ClaimUserID)
}

func parseRoles(v any) ([]string, error) {
	switch roles := v.(type) {
	case []string:
		return append([]string(nil), roles...), nil
	case []any:
		out := make([]string, 0, len(roles))
		for _, r := range roles {
			s, ok := r.(string)
			if !ok {
				return nil, fmt.Errorf("%w: malformed %s claim", ErrInvalidToken, ClaimRoles)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: malformed %s claim", ErrInvalidToken, ClaimRoles)
}

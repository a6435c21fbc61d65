package token

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	rsaOnce sync.Once
	rsaPriv []byte
	rsaPub  []byte
)

func rsaKeys(t *testing.T) ([]byte, []byte) {
	t.Helper()
	rsaOnce.Do(func() {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		rsaPriv = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
		der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
		if err != nil {
			panic(err)
		}
		rsaPub = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	})
	return rsaPriv, rsaPub
}

var epoch = time.Date(2021, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestCodec(t *testing.T) (*Codec, *testclock.Clock) {
	t.Helper()
	priv, pub := rsaKeys(t)
	keys, err := NewKeyMaterial([]byte("s3cr3t-token-key"), priv, pub)
	require.NoError(t, err)
	clk := testclock.NewClock(epoch)
	return NewCodec(keys, clk), clk
}

func TestRoundTrip(t *testing.T) {
	codec, _ := newTestCodec(t)
	cases := []struct {
		name   string
		userID int64
		roles  []string
		expiry time.Duration
		alg    Algorithm
	}{
		{name: "hs256 unlimited", userID: 42, alg: HS256},
		{name: "hs256 roles and expiry", userID: 7, roles: []string{"ADMINISTRATOR", "ACTIVE_USER"}, expiry: time.Hour, alg: HS256},
		{name: "rs256 service token", userID: -1, expiry: 300 * time.Second, alg: RS256},
		{name: "rs256 roles", userID: 1001, roles: []string{"ASTRONOMER"}, alg: RS256},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw, err := codec.Issue(tc.userID, tc.roles, tc.expiry, tc.alg)
			require.NoError(t, err)

			payload, err := codec.Parse(raw, tc.alg)
			require.NoError(t, err)
			assert.Equal(t, tc.userID, payload.UserID)
			assert.Equal(t, tc.roles, payload.Roles)
			if tc.expiry == 0 {
				assert.Nil(t, payload.ExpiresAt)
			} else {
				require.NotNil(t, payload.ExpiresAt)
				assert.True(t, payload.ExpiresAt.Equal(epoch.Add(tc.expiry)))
			}
		})
	}
}

func TestExpiryIsStrict(t *testing.T) {
	codec, clk := newTestCodec(t)
	raw, err := codec.Issue(42, nil, time.Second, HS256)
	require.NoError(t, err)

	_, err = codec.Parse(raw, HS256)
	require.NoError(t, err)

	clk.Advance(999 * time.Millisecond)
	_, err = codec.Parse(raw, HS256)
	require.NoError(t, err)

	clk.Advance(time.Millisecond)
	_, err = codec.Parse(raw, HS256)
	assert.ErrorIs(t, err, ErrExpiredToken)

	clk.Advance(time.Hour)
	_, err = codec.Parse(raw, HS256)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestExpiryNeverFiresEarlyOnSubSecondIssue(t *testing.T) {
	codec, clk := newTestCodec(t)
	clk.Advance(900 * time.Millisecond)
	raw, err := codec.Issue(42, nil, time.Second, HS256)
	require.NoError(t, err)

	payload, err := codec.Parse(raw, HS256)
	require.NoError(t, err)
	require.NotNil(t, payload.ExpiresAt)
	assert.True(t, payload.ExpiresAt.Equal(epoch.Add(2*time.Second)))

	clk.Advance(200 * time.Millisecond)
	_, err = codec.Parse(raw, HS256)
	require.NoError(t, err)

	clk.Advance(899 * time.Millisecond)
	_, err = codec.Parse(raw, HS256)
	require.NoError(t, err)

	clk.Advance(time.Millisecond)
	_, err = codec.Parse(raw, HS256)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestUnlimitedTokenNeverExpires(t *testing.T) {
	codec, clk := newTestCodec(t)
	raw, err := codec.Issue(42, nil, 0, HS256)
	require.NoError(t, err)

	clk.Advance(10 * 365 * 24 * time.Hour)
	payload, err := codec.Parse(raw, HS256)
	require.NoError(t, err)
	assert.Equal(t, int64(42), payload.UserID)
}

func TestNoCrossAlgorithmAcceptance(t *testing.T) {
	codec, _ := newTestCodec(t)

	hs, err := codec.Issue(42, nil, 0, HS256)
	require.NoError(t, err)
	_, err = codec.Parse(hs, RS256)
	assert.ErrorIs(t, err, ErrInvalidToken)

	rs, err := codec.Issue(42, nil, 0, RS256)
	require.NoError(t, err)
	_, err = codec.Parse(rs, HS256)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsTampering(t *testing.T) {
	codec, _ := newTestCodec(t)
	raw, err := codec.Issue(42, nil, 0, HS256)
	require.NoError(t, err)

	other, err := NewKeyMaterial([]byte("another-secret"), nil, nil)
	require.NoError(t, err)
	_, err = NewCodec(other, nil).Parse(raw, HS256)
	assert.ErrorIs(t, err, ErrInvalidToken)

	for _, bad := range []string{"", "abcd", "a.b.c", raw + "x"} {
		_, err := codec.Parse(bad, HS256)
		assert.ErrorIs(t, err, ErrInvalidToken, "token %q", bad)
	}
}

func TestUnsupportedAlgorithm(t *testing.T) {
	codec, _ := newTestCodec(t)

	_, err := codec.Issue(1, nil, 0, Algorithm("none"))
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = codec.Parse("abcd", Algorithm("ES256"))
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)

	_, err = ParseAlgorithm("hs256")
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)

	alg, err := ParseAlgorithm("RS256")
	require.NoError(t, err)
	assert.Equal(t, RS256, alg)
}

func TestMissingKeyMaterial(t *testing.T) {
	keys, err := NewKeyMaterial([]byte("secret"), nil, nil)
	require.NoError(t, err)
	codec := NewCodec(keys, nil)

	_, err = codec.Issue(1, nil, 0, RS256)
	assert.ErrorIs(t, err, ErrMissingKey)
	_, err = codec.Parse("abcd", RS256)
	assert.ErrorIs(t, err, ErrMissingKey)
	assert.Nil(t, codec.PublicKeyPEM())

	empty := NewCodec(KeyMaterial{}, nil)
	_, err = empty.Issue(1, nil, 0, HS256)
	assert.ErrorIs(t, err, ErrMissingKey)
}

func TestNegativeExpiryRejected(t *testing.T) {
	codec, _ := newTestCodec(t)
	_, err := codec.Issue(1, nil, -time.Second, HS256)
	assert.Error(t, err)
}

func TestPublicKeyDerivedFromPrivateKey(t *testing.T) {
	priv, _ := rsaKeys(t)
	keys, err := NewKeyMaterial(nil, priv, nil)
	require.NoError(t, err)

	pemBytes := keys.PublicKeyPEM()
	require.NotEmpty(t, pemBytes)
	block, _ := pem.Decode(pemBytes)
	require.NotNil(t, block)
	assert.Equal(t, "PUBLIC KEY", block.Type)

	verifier, err := NewKeyMaterial(nil, nil, pemBytes)
	require.NoError(t, err)
	raw, err := NewCodec(keys, nil).Issue(5, nil, time.Minute, RS256)
	require.NoError(t, err)
	payload, err := NewCodec(verifier, nil).Parse(raw, RS256)
	require.NoError(t, err)
	assert.Equal(t, int64(5), payload.UserID)
}

func TestLoadKeyMaterialFromFiles(t *testing.T) {
	priv, pub := rsaKeys(t)
	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")
	require.NoError(t, os.WriteFile(privPath, priv, 0o600))
	require.NoError(t, os.WriteFile(pubPath, pub, 0o644))

	keys, err := LoadKeyMaterial(KeyConfig{Secret: "x", PrivateKeyPath: privPath, PublicKeyPath: pubPath})
	require.NoError(t, err)
	assert.Equal(t, pub, keys.PublicKeyPEM())

	_, err = LoadKeyMaterial(KeyConfig{PrivateKeyPath: filepath.Join(dir, "missing.pem")})
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = NewKeyMaterial(nil, pub, nil)
	assert.ErrorIs(t, err, ErrConfiguration, "public key given as private key")
}

func TestConcurrentIssueAndParse(t *testing.T) {
	codec, _ := newTestCodec(t)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			raw, err := codec.Issue(id, nil, time.Minute, HS256)
			if !assert.NoError(t, err) {
				return
			}
			payload, err := codec.Parse(raw, HS256)
			if assert.NoError(t, err) {
				assert.Equal(t, id, payload.UserID)
			}
		}(int64(i + 1))
	}
	wg.Wait()
}

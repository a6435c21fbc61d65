package perf

import (
	"context"
	"net/http"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/saltastro/saltapi/internal/auth"
	"github.com/saltastro/saltapi/internal/rbac"
	"github.com/saltastro/saltapi/internal/shared"
	"github.com/saltastro/saltapi/internal/token"
	"github.com/saltastro/saltapi/internal/users"
)

type fixture struct {
	gate   *auth.Gate
	policy *rbac.Policy
	header http.Header
}

func newFixture(tb testing.TB) fixture {
	tb.Helper()
	store := users.NewMemoryStore().WithCost(bcrypt.MinCost)
	require.NoError(tb, store.AddUser(shared.Identity{ID: 7, Username: "pi"}, "pw", rbac.Setting{Active: true}))
	store.SetProposalContacts("2021-1-SCI-001", users.ProposalContacts{Investigator: "pi"})

	keys, err := token.NewKeyMaterial([]byte("bench-secret"), nil, nil)
	require.NoError(tb, err)
	codec := token.NewCodec(keys, nil)
	raw, err := codec.Issue(7, nil, time.Hour, token.HS256)
	require.NoError(tb, err)

	resolver := rbac.NewSettingsResolver(store, nil)
	header := http.Header{}
	header.Set("Authorization", "Bearer "+raw)
	return fixture{
		gate:   auth.NewGate(codec, store, resolver, token.HS256, nil, nil),
		policy: rbac.NewPolicy(users.NewDelegatedAuthority(store), nil),
		header: header,
	}
}

func TestAuthenticateLatencyTarget(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	samples := make([]time.Duration, 0, 200)
	for i := 0; i < cap(samples); i++ {
		start := time.Now()
		p, err := f.gate.Authenticate(ctx, f.header)
		samples = append(samples, time.Since(start))
		require.NoError(t, err)
		require.NotNil(t, p)
	}
	threshold := 50 * time.Millisecond
	if p95 := percentile95(samples); p95 > threshold {
		t.Fatalf("authentication latency regression: p95=%s threshold=%s", p95, threshold)
	}
}

func BenchmarkGateAuthenticate(b *testing.B) {
	f := newFixture(b)
	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := f.gate.Authenticate(ctx, f.header); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkPolicyAuthorizeDelegated(b *testing.B) {
	f := newFixture(b)
	ctx := context.Background()
	p, err := f.gate.Authenticate(ctx, f.header)
	require.NoError(b, err)
	oc := rbac.OperationContext{ProposalCode: "2021-1-SCI-001"}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		allowed, err := f.policy.Authorize(ctx, p, rbac.OpViewProposal, oc)
		if err != nil || !allowed {
			b.Fatalf("allowed=%v err=%v", allowed, err)
		}
	}
}

func percentile95(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	index := int(float64(len(sorted)-1) * 0.95)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}

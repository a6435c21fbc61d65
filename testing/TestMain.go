package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("SALTAPI_TEST_MODE", "1")
		if os.Getenv("SECRET_TOKEN_KEY") == "" {
			_ = os.Setenv("SECRET_TOKEN_KEY", "test-secret-token-key")
		}
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}

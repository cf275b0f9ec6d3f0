package state

import (
	"context"
	"testing"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := ContextWithEnv(context.Background())

	env := EnvFromContext(ctx)
	if env == nil {
		t.Fatal("EnvFromContext() returned nil")
	}
	if env.Uptime() < 0 {
		t.Errorf("Uptime() = %v, want non-negative", env.Uptime())
	}

	// the same environment comes back on repeated lookups
	if EnvFromContext(ctx) != env {
		t.Error("EnvFromContext() returned a different environment")
	}
}

func TestEnvFromContext_Missing(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("EnvFromContext() without environment did not panic")
		}
	}()
	EnvFromContext(context.Background())
}

func TestRestoreStdLog_NoLogger(t *testing.T) {
	env := &LocalEnv{}
	env.RedirectStdLog()
	env.RestoreStdLog()
}

package dispatch

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"
)

func TestTransformAppliesDashPrefixUppercaseInOrder(t *testing.T) {
	got := Transform("db-url", TransformOpts{DashReplace: '_', Prefix: "app_", Uppercase: true})
	want := "APP_DB_URL"
	if got != want {
		t.Errorf("Transform = %q, want %q", got, want)
	}
}

func TestTransformNoOptions(t *testing.T) {
	got := Transform("db-url", TransformOpts{})
	if got != "db-url" {
		t.Errorf("Transform = %q, want unchanged", got)
	}
}

func TestBuildEnvOverlayWins(t *testing.T) {
	base := []string{"PATH=/usr/bin", "HOME=/root"}
	env := BuildEnv(base, map[string]string{"HOME": "/overridden"})

	var sawOverride, sawBase bool
	for _, kv := range env {
		if kv == "HOME=/overridden" {
			sawOverride = true
		}
		if kv == "PATH=/usr/bin" {
			sawBase = true
		}
	}
	if !sawOverride || !sawBase {
		t.Errorf("env = %v", env)
	}
}

func TestRunRejectsEmptyArgv(t *testing.T) {
	_, err := Run(context.Background(), nil, TransformOpts{}, nil)
	if err == nil {
		t.Fatal("expected error for empty argv")
	}
}

func TestRunPropagatesExitCode(t *testing.T) {
	result, err := Run(context.Background(), nil, TransformOpts{}, []string{"sh", "-c", "exit 3"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", result.ExitCode)
	}
}

func TestRunInjectsSecretsIntoChildEnv(t *testing.T) {
	result, err := Run(context.Background(), map[string]string{"db-url": "postgres://x"},
		TransformOpts{Uppercase: true, DashReplace: '_'}, []string{"sh", "-c", "test \"$DB_URL\" = \"postgres://x\""})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", result.ExitCode)
	}
	if result.InjectedCount != 1 {
		t.Errorf("InjectedCount = %d, want 1", result.InjectedCount)
	}
}

func TestRunWarnsOnNameCollision(t *testing.T) {
	orig := os.Stderr
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe failed: %v", err)
	}
	os.Stderr = w

	_, runErr := Run(context.Background(),
		map[string]string{"db-url": "a", "db_url": "b"},
		TransformOpts{DashReplace: '_'}, []string{"true"})

	_ = w.Close()
	os.Stderr = orig
	if runErr != nil {
		t.Fatalf("Run failed: %v", runErr)
	}

	captured, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if !strings.Contains(string(captured), "both transform to") {
		t.Errorf("expected collision warning on stderr, got %q", captured)
	}
}

package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"intake/internal/types"
)

func TestResolveUserID(t *testing.T) {
	userID = "flagged"
	defer func() { userID = "" }()
	if got := resolveUserID(); got != "flagged" {
		t.Fatalf("expected flag value, got %q", got)
	}

	userID = ""
	t.Setenv("USER", "envuser")
	if got := resolveUserID(); got != "envuser" {
		t.Fatalf("expected env value, got %q", got)
	}

	t.Setenv("USER", "")
	if got := resolveUserID(); got != "anonymous" {
		t.Fatalf("expected anonymous fallback, got %q", got)
	}
}

func TestBuildRuntimeLocalScorer(t *testing.T) {
	logger = zap.NewNop()
	workspace = t.TempDir()
	localScorer = true
	defer func() { localScorer = false }()

	rt, err := buildRuntime()
	if err != nil {
		t.Fatalf("buildRuntime returned error: %v", err)
	}
	defer rt.close()

	if rt.cat.TotalStages() == 0 {
		t.Fatal("expected a populated default catalog")
	}
	if rt.store == nil {
		t.Fatal("expected a session store")
	}
	if _, err := os.Stat(filepath.Join(workspace, ".intake")); err != nil {
		t.Fatalf("expected workspace .intake directory: %v", err)
	}
}

func TestRunStatusNoSession(t *testing.T) {
	logger = zap.NewNop()
	workspace = t.TempDir()
	localScorer = true
	statusSessionID = ""
	defer func() { localScorer = false }()

	output := captureOutput(t, func() {
		if err := runStatus(&cobra.Command{}, nil); err != nil {
			t.Fatalf("runStatus returned error: %v", err)
		}
	})

	if !strings.Contains(output, "No session found") {
		t.Fatalf("expected missing-session notice, got: %s", output)
	}
}

func TestRunStatusWithStoredSession(t *testing.T) {
	logger = zap.NewNop()
	workspace = t.TempDir()
	localScorer = true
	defer func() {
		localScorer = false
		statusSessionID = ""
	}()

	rt, err := buildRuntime()
	if err != nil {
		t.Fatalf("buildRuntime returned error: %v", err)
	}
	sess := &types.Session{
		ID:           "sess-status",
		UserID:       "u1",
		CurrentStage: 3,
		TotalStages:  rt.cat.TotalStages(),
		Status:       types.StatusActive,
	}
	if err := rt.store.SaveSession(sess); err != nil {
		t.Fatalf("SaveSession returned error: %v", err)
	}
	rt.close()

	statusSessionID = "sess-status"
	output := captureOutput(t, func() {
		if err := runStatus(&cobra.Command{}, nil); err != nil {
			t.Fatalf("runStatus returned error: %v", err)
		}
	})

	if !strings.Contains(output, "sess-status") {
		t.Fatalf("expected session id in output, got: %s", output)
	}
	if !strings.Contains(output, "Stage 3") {
		t.Fatalf("expected current stage listing, got: %s", output)
	}
}

func captureOutput(t *testing.T, fn func()) string {
	t.Helper()

	origOut := os.Stdout
	origErr := os.Stderr
	rOut, wOut, _ := os.Pipe()
	rErr, wErr, _ := os.Pipe()
	os.Stdout = wOut
	os.Stderr = wErr

	fn()

	_ = wOut.Close()
	_ = wErr.Close()
	os.Stdout = origOut
	os.Stderr = origErr

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, rOut)
	_, _ = io.Copy(&buf, rErr)
	return buf.String()
}

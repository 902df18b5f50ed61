package config_test

import (
	"errors"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/louisbranch/solarfield/internal/platform/config"
)

// TestExitf_ExitsWithCode1 uses the subprocess pattern because os.Exit cannot
// be intercepted in-process.
func TestExitf_ExitsWithCode1(t *testing.T) {
	if os.Getenv("TEST_EXITF_SUBPROCESS") == "1" {
		config.Exitf("fatal: %s", "something broke")
		return
	}

	out, code := runSubprocess(t, "^TestExitf_ExitsWithCode1$", "TEST_EXITF_SUBPROCESS=1")
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(out, "fatal: something broke") {
		t.Fatalf("expected stderr to contain %q, got %q", "fatal: something broke", out)
	}
}

func TestExitOnError_ExitsWithContext(t *testing.T) {
	if os.Getenv("TEST_EXIT_ON_ERROR_SUBPROCESS") == "1" {
		config.ExitOnError(errors.New("bad value"), "parse config")
		return
	}

	out, code := runSubprocess(t, "^TestExitOnError_ExitsWithContext$", "TEST_EXIT_ON_ERROR_SUBPROCESS=1")
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(out, "parse config: bad value") {
		t.Fatalf("expected stderr to contain context, got %q", out)
	}
}

func TestExitOnError_NilIsNoop(t *testing.T) {
	config.ExitOnError(nil, "unused")
}

func runSubprocess(t *testing.T, pattern, env string) (string, int) {
	t.Helper()
	cmd := exec.Command(os.Args[0], "-test.run="+pattern)
	cmd.Env = append(os.Environ(), env)

	out, err := cmd.CombinedOutput()

	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		t.Fatalf("expected *exec.ExitError, got %T: %v", err, err)
	}
	return string(out), exitErr.ExitCode()
}

package daemon

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/matheus3301/soc/internal/api"
	"github.com/matheus3301/soc/internal/session"
)

// Binary is the daemon executable started by EnsureRunning.
const Binary = "socd"

const (
	probeTimeout  = 2 * time.Second
	readyInterval = 300 * time.Millisecond
)

// Probe reports whether a daemon answers on socketPath. A socket file
// alone is not enough; the daemon has to reply to a status call.
func Probe(socketPath string) bool {
	if _, err := os.Stat(socketPath); err != nil {
		return false
	}
	c, err := api.Dial(socketPath)
	if err != nil {
		return false
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	_, err = c.Status(ctx)
	return err == nil
}

// Launch starts the daemon for sessionName in the background. The binary
// next to the running executable is preferred over one on PATH.
func Launch(sessionName string) error {
	bin := Binary
	if exe, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(exe), Binary)
		if _, err := os.Stat(sibling); err == nil {
			bin = sibling
		}
	}

	cmd := exec.Command(bin, "--session", sessionName)
	// Startup errors (lock held, bad config) stay visible.
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", bin, err)
	}
	return cmd.Process.Release()
}

// WaitReady polls socketPath until the daemon answers or timeout passes.
func WaitReady(socketPath string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if Probe(socketPath) {
			return true
		}
		time.Sleep(readyInterval)
	}
	return false
}

// EnsureRunning starts the session's daemon unless one already answers.
// started reports whether a new daemon was launched.
func EnsureRunning(sessionName string, timeout time.Duration) (started bool, err error) {
	socketPath := session.SocketPath(sessionName)
	if Probe(socketPath) {
		return false, nil
	}
	if err := Launch(sessionName); err != nil {
		return false, err
	}
	if !WaitReady(socketPath, timeout) {
		return true, fmt.Errorf("daemon for session %q did not become ready within %s", sessionName, timeout)
	}
	return true, nil
}

// Package lock keeps one daemon per session with an flock on the
// session's LOCK file.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// FileName is the lock file inside a session directory.
const FileName = "LOCK"

// Owner describes the process holding a lock, as written in the file.
type Owner struct {
	PID     int
	Program string
	Since   time.Time
}

// LockHeldError is returned when another process holds the session lock.
type LockHeldError struct {
	Owner Owner
	Path  string
}

func (e *LockHeldError) Error() string {
	if e.Owner.Program != "" {
		return fmt.Sprintf("session lock held by %s (PID %d, %s)", e.Owner.Program, e.Owner.PID, e.Path)
	}
	return fmt.Sprintf("session lock held by PID %d (%s)", e.Owner.PID, e.Path)
}

// Lock represents an acquired session lock file.
type Lock struct {
	file *os.File
	path string
}

func open(sessionDir string) (*os.File, string, error) {
	if err := os.MkdirAll(sessionDir, 0700); err != nil {
		return nil, "", fmt.Errorf("create session dir: %w", err)
	}
	path := filepath.Join(sessionDir, FileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, "", fmt.Errorf("open lock file: %w", err)
	}
	return f, path, nil
}

// Acquire takes the exclusive lock on sessionDir for program. Returns
// LockHeldError if another process already holds it.
func Acquire(sessionDir, program string) (*Lock, error) {
	f, path, err := open(sessionDir)
	if err != nil {
		return nil, err
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			return nil, &LockHeldError{Owner: readOwner(path), Path: path}
		}
		return nil, fmt.Errorf("flock %s: %w", path, err)
	}

	if err := f.Truncate(0); err != nil {
		_ = f.Close()
		return nil, err
	}
	content := fmt.Sprintf("pid=%d\nprogram=%s\ntime=%s\n",
		os.Getpid(), program, time.Now().UTC().Format(time.RFC3339))
	if _, err := f.WriteAt([]byte(content), 0); err != nil {
		_ = f.Close()
		return nil, err
	}

	return &Lock{file: f, path: path}, nil
}

// Probe reports who holds the lock on sessionDir, if anyone, without
// keeping it.
func Probe(sessionDir string) (*Owner, error) {
	path := filepath.Join(sessionDir, FileName)
	f, err := os.OpenFile(path, os.O_RDWR, 0600)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		if errors.Is(err, syscall.EWOULDBLOCK) {
			owner := readOwner(path)
			return &owner, nil
		}
		return nil, fmt.Errorf("flock %s: %w", path, err)
	}
	_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	return nil, nil
}

// Release releases the lock. Safe to call on nil receiver.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	_ = os.Remove(l.path)
	err := l.file.Close()
	l.file = nil
	return err
}

func readOwner(path string) Owner {
	data, _ := os.ReadFile(path)
	var o Owner
	for _, line := range strings.Split(string(data), "\n") {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch key {
		case "pid":
			o.PID, _ = strconv.Atoi(value)
		case "program":
			o.Program = value
		case "time":
			o.Since, _ = time.Parse(time.RFC3339, value)
		}
	}
	return o
}

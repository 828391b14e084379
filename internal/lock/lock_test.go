package lock

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestAcquireAndRelease(t *testing.T) {
	tmpDir := t.TempDir()

	l, err := Acquire(tmpDir, "socd")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	owner := readOwner(filepath.Join(tmpDir, FileName))
	if owner.PID != os.Getpid() || owner.Program != "socd" || owner.Since.IsZero() {
		t.Errorf("owner = %+v", owner)
	}

	if err := l.Release(); err != nil {
		t.Errorf("Release() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, FileName)); !errors.Is(err, os.ErrNotExist) {
		t.Error("lock file left behind after Release")
	}
}

func TestDoubleAcquireFails(t *testing.T) {
	tmpDir := t.TempDir()

	l1, err := Acquire(tmpDir, "socd")
	if err != nil {
		t.Fatalf("first Acquire() error = %v", err)
	}
	defer func() { _ = l1.Release() }()

	_, err = Acquire(tmpDir, "socd")
	if err == nil {
		t.Fatal("second Acquire() should fail")
	}

	var lockErr *LockHeldError
	if !errors.As(err, &lockErr) {
		t.Fatalf("expected LockHeldError, got %T: %v", err, err)
	}
	if lockErr.Owner.PID != os.Getpid() {
		t.Errorf("holder PID = %d, want %d", lockErr.Owner.PID, os.Getpid())
	}
}

func TestProbe(t *testing.T) {
	tmpDir := t.TempDir()

	owner, err := Probe(tmpDir)
	if err != nil || owner != nil {
		t.Fatalf("Probe() on empty dir = %+v, %v", owner, err)
	}

	l, err := Acquire(tmpDir, "socd")
	if err != nil {
		t.Fatal(err)
	}
	owner, err = Probe(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	if owner == nil || owner.Program != "socd" {
		t.Errorf("Probe() while held = %+v", owner)
	}

	// Probing must not take the lock away from its holder.
	if _, err := Acquire(tmpDir, "other"); err == nil {
		t.Error("Acquire() succeeded after Probe while lock held")
	}
	_ = l.Release()
}

func TestReleaseNil(t *testing.T) {
	var l *Lock
	if err := l.Release(); err != nil {
		t.Errorf("nil Release() error = %v", err)
	}
}

func TestReleaseIdempotent(t *testing.T) {
	l, err := Acquire(t.TempDir(), "socd")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	if err := l.Release(); err != nil {
		t.Errorf("first Release() error = %v", err)
	}
	if err := l.Release(); err != nil {
		t.Errorf("second Release() error = %v", err)
	}
}

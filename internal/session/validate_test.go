package session

import (
	"path/filepath"
	"testing"

	"github.com/matheus3301/soc/internal/config"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "main", false},
		{"valid with numbers", "work123", false},
		{"valid with hyphen", "my-session", false},
		{"valid with underscore", "my_session", false},
		{"valid max length", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", false},
		{"empty", "", true},
		{"uppercase", "Main", true},
		{"space", "my session", true},
		{"dot", "my.session", true},
		{"too long", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", true},
		{"slash", "my/session", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestResolvePrecedence(t *testing.T) {
	base := t.TempDir()
	t.Setenv(HomeEnv, base)

	if got := Resolve(""); got != DefaultSessionName {
		t.Errorf("Resolve() without config = %q, want %q", got, DefaultSessionName)
	}

	if err := config.Save(filepath.Join(base, "config.toml"), &config.Config{DefaultSession: "work"}); err != nil {
		t.Fatal(err)
	}
	if got := Resolve(""); got != "work" {
		t.Errorf("Resolve() with config = %q, want work", got)
	}
	if got := Resolve("play"); got != "play" {
		t.Errorf("Resolve(play) = %q, want play", got)
	}
}

func TestMustResolveRejectsInvalid(t *testing.T) {
	t.Setenv(HomeEnv, t.TempDir())
	if _, err := MustResolve("Bad Name"); err == nil {
		t.Error("MustResolve expected error for invalid name")
	}
	name, err := MustResolve("")
	if err != nil || name != DefaultSessionName {
		t.Errorf("MustResolve(\"\") = %q, %v", name, err)
	}
}

package acl_test

import (
	"testing"

	"github.com/serroba/collab-pad/internal/acl"
)

func TestParseMode(t *testing.T) {
	t.Parallel()

	valid := []string{"freely", "editable", "limited", "locked", "protected", "private"}

	for _, s := range valid {
		mode, err := acl.ParseMode(s)
		if err != nil {
			t.Errorf("expected %q to parse, got %v", s, err)
		}

		if string(mode) != s {
			t.Errorf("expected mode %q, got %q", s, mode)
		}
	}

	if _, err := acl.ParseMode("public"); err == nil {
		t.Error("expected unknown mode to be rejected")
	}

	if _, err := acl.ParseMode(""); err == nil {
		t.Error("expected empty mode to be rejected")
	}
}

func TestMode_AccessTable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mode          acl.Mode
		anonRead      bool
		anonWrite     bool
		signedInRead  bool
		signedInWrite bool
	}{
		{acl.ModeFreely, true, true, true, true},
		{acl.ModeEditable, true, false, true, true},
		{acl.ModeLimited, false, false, true, true},
		{acl.ModeLocked, true, false, true, false},
		{acl.ModeProtected, false, false, true, false},
		{acl.ModePrivate, false, false, false, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(string(tt.mode), func(t *testing.T) {
			t.Parallel()

			if got := tt.mode.CanRead(false, false); got != tt.anonRead {
				t.Errorf("anonymous read = %v, want %v", got, tt.anonRead)
			}

			if got := tt.mode.CanWrite(false, false); got != tt.anonWrite {
				t.Errorf("anonymous write = %v, want %v", got, tt.anonWrite)
			}

			if got := tt.mode.CanRead(true, false); got != tt.signedInRead {
				t.Errorf("signed-in read = %v, want %v", got, tt.signedInRead)
			}

			if got := tt.mode.CanWrite(true, false); got != tt.signedInWrite {
				t.Errorf("signed-in write = %v, want %v", got, tt.signedInWrite)
			}

			// The owner can always do both.
			if !tt.mode.CanRead(true, true) || !tt.mode.CanWrite(true, true) {
				t.Error("owner must always read and write")
			}
		})
	}
}

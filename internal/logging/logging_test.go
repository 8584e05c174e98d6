package logging

import "testing"

func TestNewLevels(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "WARN", "error"} {
		l, err := New(lvl, "json")
		if err != nil {
			t.Fatalf("New(%q): %v", lvl, err)
		}
		_ = l.Sync()
	}
	if _, err := New("chatty", "console"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

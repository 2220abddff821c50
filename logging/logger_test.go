package logging

import "testing"

func TestNewAcceptsKnownLevels(t *testing.T) {
	tests := []struct {
		level  string
		format string
	}{
		{"debug", "console"},
		{"info", "json"},
		{"", "console"},
		{"warn", "console"},
		{"warning", "json"},
		{"error", "console"},
	}

	for _, tt := range tests {
		log, err := New(tt.level, tt.format)
		if err != nil {
			t.Fatalf("New(%q, %q): unexpected error: %v", tt.level, tt.format, err)
		}
		if log == nil {
			t.Fatal("New returned a nil Logger")
		}
		log.Infow("smoke test", "level", tt.level, "format", tt.format)
		log.Sync()
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New("verbose", "console"); err == nil {
		t.Error("expected an error for an unknown log level")
	}
}

func TestNop(t *testing.T) {
	log := Nop()
	if log == nil {
		t.Fatal("Nop returned nil")
	}
	// Should not panic, and should discard everything.
	log.Infow("discarded", "key", "value")
	log.Warnw("discarded")
	if err := log.Sync(); err != nil {
		t.Errorf("Sync on a nop logger returned an error: %v", err)
	}
}

package shared

import (
	"encoding/hex"
	"strings"
	"testing"
)

func TestGenerateID(t *testing.T) {
	id := GenerateID()
	if id == "" {
		t.Fatal("expected non-empty ID")
	}
	if id == GenerateID() {
		t.Error("expected unique IDs")
	}
}

func TestGenerateState(t *testing.T) {
	state, err := GenerateState()
	if err != nil {
		t.Fatalf("failed to generate state: %v", err)
	}

	if len(state) != 32 {
		t.Errorf("expected 32 hex characters, got %d", len(state))
	}
	if _, err := hex.DecodeString(state); err != nil {
		t.Errorf("state should be hex encoded: %v", err)
	}

	other, err := GenerateState()
	if err != nil {
		t.Fatalf("failed to generate second state: %v", err)
	}
	if state == other {
		t.Error("expected unique state tokens")
	}
}

func TestFormatDuration(t *testing.T) {
	tc := []struct {
		name    string
		seconds int
		want    string
	}{
		{name: "zero", seconds: 0, want: "0:00"},
		{name: "under a minute", seconds: 45, want: "0:45"},
		{name: "exact minute", seconds: 60, want: "1:00"},
		{name: "typical track", seconds: 215, want: "3:35"},
		{name: "padded seconds", seconds: 61, want: "1:01"},
		{name: "negative clamps to zero", seconds: -10, want: "0:00"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatDuration(tt.seconds)
			if got != tt.want {
				t.Errorf("FormatDuration(%d) = %v, want %v", tt.seconds, got, tt.want)
			}
		})
	}
}

func TestMarshalJSON(t *testing.T) {
	v := map[string]string{"key": "value"}

	compact, err := MarshalJSON(v, false)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	if string(compact) != `{"key":"value"}` {
		t.Errorf("unexpected compact output: %s", compact)
	}

	pretty, err := MarshalJSON(v, true)
	if err != nil {
		t.Fatalf("failed to marshal pretty: %v", err)
	}
	if !strings.Contains(string(pretty), "\n") {
		t.Error("pretty output should be indented")
	}
}

func TestVisibilityString(t *testing.T) {
	if got := VisibilityString(true); got != "Public" {
		t.Errorf("VisibilityString(true) = %v, want Public", got)
	}
	if got := VisibilityString(false); got != "Private" {
		t.Errorf("VisibilityString(false) = %v, want Private", got)
	}
}

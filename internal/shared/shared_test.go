package shared

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestGenerateState(t *testing.T) {
	state, err := GenerateState()
	if err != nil {
		t.Fatalf("GenerateState() error = %v", err)
	}

	if len(state) != 32 {
		t.Errorf("GenerateState() length = %d, want 32", len(state))
	}
	if _, err := hex.DecodeString(state); err != nil {
		t.Errorf("GenerateState() = %q, not valid hex: %v", state, err)
	}

	other, err := GenerateState()
	if err != nil {
		t.Fatalf("GenerateState() error = %v", err)
	}
	if state == other {
		t.Error("GenerateState() returned the same token twice")
	}
}

func TestGenerateID(t *testing.T) {
	id := GenerateID()
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("GenerateID() = %q, not a valid UUID: %v", id, err)
	}

	if GenerateID() == id {
		t.Error("GenerateID() returned the same ID twice")
	}
}

func TestMarshalJSON(t *testing.T) {
	data := map[string]int{"rock": 3}

	pretty, err := MarshalJSON(data, true)
	if err != nil {
		t.Fatalf("MarshalJSON(pretty) error = %v", err)
	}
	if !strings.Contains(string(pretty), "\n") {
		t.Errorf("MarshalJSON(pretty) = %q, want indented output", pretty)
	}

	compact, err := MarshalJSON(data, false)
	if err != nil {
		t.Fatalf("MarshalJSON(compact) error = %v", err)
	}
	if strings.Contains(string(compact), "\n") {
		t.Errorf("MarshalJSON(compact) = %q, want single-line output", compact)
	}

	if _, err := MarshalJSON(make(chan int), false); err == nil {
		t.Error("MarshalJSON(chan) expected error, got nil")
	}
}

func TestOpenBrowserUnsupportedPlatform(t *testing.T) {
	original := getRuntime
	getRuntime = func() string { return "plan9" }
	defer func() { getRuntime = original }()

	if err := OpenBrowser("http://localhost"); err == nil {
		t.Error("OpenBrowser() on unsupported platform expected error, got nil")
	}
}

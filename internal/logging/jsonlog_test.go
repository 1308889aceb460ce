package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"
)

func TestInfoWritesJSONLine(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stdout)

	Info("fetch_account", map[string]any{"username": "gopher", "count": 3})

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("not json: %v (%q)", err, buf.String())
	}
	if got["msg"] != "fetch_account" || got["level"] != "INFO" {
		t.Fatalf("unexpected entry: %v", got)
	}
	if got["username"] != "gopher" {
		t.Fatalf("missing field: %v", got)
	}
}

func TestSetLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stdout)
	defer SetLevel("info")

	SetLevel("warn")
	Info("hidden", nil)
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered, got %q", buf.String())
	}
	Error("shown", nil)
	if buf.Len() == 0 {
		t.Fatalf("expected error line")
	}
	SetLevel("nonsense")
	Warn("still_warn", nil)
	if !bytes.Contains(buf.Bytes(), []byte("still_warn")) {
		t.Fatalf("unknown level should keep warn")
	}
}

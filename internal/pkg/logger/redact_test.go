package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestRedactEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"john.doe@example.com", "jo***@example.com"},
		{"ab@example.com", "***@example.com"},
		{"a@example.com", "***@example.com"},
		{"not-an-email", "***@***"},
		{"", "***@***"},
	}
	for _, tt := range tests {
		if got := RedactEmail(tt.in); got != tt.want {
			t.Errorf("RedactEmail(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRedactToken(t *testing.T) {
	if got := RedactToken("abcdefghijklmnop"); got != "abcdefgh..." {
		t.Errorf("RedactToken long = %q", got)
	}
	if got := RedactToken("short"); got != "********" {
		t.Errorf("RedactToken short = %q", got)
	}
}

func TestLoggerRedactsRecipientFields(t *testing.T) {
	var buf bytes.Buffer
	old := defaultLogger.out
	defaultLogger.out = &buf
	defer func() { defaultLogger.out = old }()

	Info("send evaluated", "recipient", "john.doe@example.com", "tenant_id", "t-1")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["recipient"] != "jo***@example.com" {
		t.Errorf("recipient not redacted: %v", entry["recipient"])
	}
	if entry["tenant_id"] != "t-1" {
		t.Errorf("tenant_id mangled: %v", entry["tenant_id"])
	}
}

func TestComponentLoggerStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	old := defaultLogger.out
	defaultLogger.out = &buf
	defer func() { defaultLogger.out = old }()

	Component("governor").Warn("dkim key missing", "domain", "mail.example.com")

	if !strings.Contains(buf.String(), `"component":"governor"`) {
		t.Errorf("component missing from entry: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", DEBUG},
		{"WARN", WARN},
		{"warning", WARN},
		{"error", ERROR},
		{"", INFO},
		{"nope", INFO},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

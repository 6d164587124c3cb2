package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &m); err != nil {
		t.Fatalf("log line is not JSON: %v\n%s", err, buf.String())
	}
	return m
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", Config{}, false},
		{"text debug", Config{Level: "debug", Format: "text"}, false},
		{"bad level", Config{Level: "loud"}, true},
		{"bad format", Config{Format: "xml"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.Writer = &bytes.Buffer{}
			_, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "warn", Writer: &buf})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info logged at warn level: %s", buf.String())
	}
	logger.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("warn not logged: %s", buf.String())
	}
}

func TestLogger_ContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := New(Config{Writer: &buf})

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithCorridor(ctx, "corridor-9")
	ctx = WithProposalID(ctx, "p-3")
	logger.InfoContext(ctx, "evaluated")

	m := decodeLine(t, &buf)
	for key, want := range map[string]string{"request_id": "req-1", "corridor": "corridor-9", "proposal_id": "p-3"} {
		if m[key] != want {
			t.Errorf("%s = %v, want %s", key, m[key], want)
		}
	}
}

func TestLogger_Redaction(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := New(Config{Writer: &buf, RedactSubjects: true})

	ctx := WithSubject(context.Background(), "alice")
	logger.With("component", "test", "token", "abc").InfoContext(ctx, "evaluated",
		"credentials", []string{"clinician"},
		"dsn", "postgres://warden:hunter2@db:5432/warden",
		slog.Group("proposal", "subject", "alice"),
	)

	m := decodeLine(t, &buf)
	if m["subject"] != Pseudonym("alice") {
		t.Errorf("subject = %v, want pseudonym", m["subject"])
	}
	if m["token"] != "***" || m["credentials"] != "***" {
		t.Errorf("secrets not masked: token=%v credentials=%v", m["token"], m["credentials"])
	}
	if strings.Contains(buf.String(), "hunter2") {
		t.Errorf("password leaked: %s", buf.String())
	}
	group, _ := m["proposal"].(map[string]any)
	if group["subject"] != Pseudonym("alice") {
		t.Errorf("grouped subject = %v, want pseudonym", group["subject"])
	}
	if m["component"] != "test" {
		t.Errorf("component = %v", m["component"])
	}
}

func TestLogger_NoRedaction(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := New(Config{Writer: &buf})

	logger.InfoContext(WithSubject(context.Background(), "alice"), "evaluated")
	if m := decodeLine(t, &buf); m["subject"] != "alice" {
		t.Errorf("subject = %v, want alice", m["subject"])
	}
}

func TestPseudonym(t *testing.T) {
	if Pseudonym("a") != Pseudonym("a") {
		t.Error("pseudonym not stable")
	}
	if Pseudonym("a") == Pseudonym("b") {
		t.Error("pseudonyms collide")
	}
	if Pseudonym("") != "" {
		t.Error("empty subject should stay empty")
	}
}

package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"regexp"
	"strings"
)

// Redactor masks sensitive log attributes. Subject references are replaced
// by a stable pseudonym so that log lines about one subject still correlate.
type Redactor struct {
	patterns []*redactPattern
}

type redactPattern struct {
	regex       *regexp.Regexp
	replacement string
}

// NewRedactor creates a redactor with the default patterns.
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: []*redactPattern{
			{regexp.MustCompile(`Bearer\s+[a-zA-Z0-9\-._~+/]+=*`), "Bearer ***"},
			{regexp.MustCompile(`(password|passwd|pwd)[:=]\s*[^\s]+`), "$1: ***"},
			{regexp.MustCompile(`(postgres(?:ql)?://[^:/@\s]+):[^@\s]+@`), "$1:***@"},
		},
	}
}

var subjectKeys = map[string]bool{
	"subject":     true,
	"subject_ref": true,
}

var secretKeys = []string{
	"password", "passwd", "secret", "token",
	"credential", "private_key", "authorization",
}

// RedactAttr returns a with sensitive values masked. Groups are walked.
func (r *Redactor) RedactAttr(a slog.Attr) slog.Attr {
	key := strings.ToLower(a.Key)

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		out := make([]any, len(attrs))
		for i, g := range attrs {
			out[i] = r.RedactAttr(g)
		}
		return slog.Group(a.Key, out...)
	}

	switch {
	case subjectKeys[key]:
		return slog.String(a.Key, Pseudonym(a.Value.String()))
	case isSecretKey(key):
		return slog.String(a.Key, "***")
	}

	if a.Value.Kind() == slog.KindString {
		return slog.String(a.Key, r.RedactString(a.Value.String()))
	}
	return a
}

// RedactString masks secrets embedded in a free-form string.
func (r *Redactor) RedactString(s string) string {
	for _, p := range r.patterns {
		s = p.regex.ReplaceAllString(s, p.replacement)
	}
	return s
}

func isSecretKey(key string) bool {
	for _, s := range secretKeys {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}

// Pseudonym returns a short stable hash of a subject reference.
func Pseudonym(subject string) string {
	if subject == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(subject))
	return "subj-" + hex.EncodeToString(sum[:6])
}

package profile

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Options controls how documents are turned into profiles.
type Options struct {
	// WarnBandRatio derives warn bands for envelopes that set only a ceiling.
	WarnBandRatio float64

	// Source is recorded on the parsed profile.
	Source string
}

// Parse loads a profile document (YAML or JSON) with default options.
func Parse(data []byte) (*Profile, error) {
	return ParseWithOptions(data, Options{})
}

// ParseWithOptions decodes, normalizes and validates a profile document.
// Unknown fields are rejected so that a misspelt constraint cannot silently
// weaken a profile.
func ParseWithOptions(data []byte, opts Options) (*Profile, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &ProfileValidationError{Source: opts.Source, Problems: []string{"document is empty"}}
	}

	var p Profile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, &ProfileValidationError{
			Source: opts.Source,
			Cause:  fmt.Errorf("failed to decode profile document: %w", err),
		}
	}

	return Finalize(&p, opts)
}

// ParseFile reads and parses a profile document from disk.
func ParseFile(path string, opts Options) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ProfileValidationError{Source: path, Cause: err}
	}
	if opts.Source == "" {
		opts.Source = path
	}
	return ParseWithOptions(data, opts)
}

// Finalize normalizes and validates a profile built in code or decoded from a
// document, and stamps its digest and source.
func Finalize(p *Profile, opts Options) (*Profile, error) {
	p.Normalize(opts.WarnBandRatio)
	if opts.Source != "" {
		p.Source = opts.Source
	}

	if err := Validate(p); err != nil {
		return nil, err
	}

	p.Digest = p.ComputeDigest()
	return p, nil
}

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"mercator-hq/warden/pkg/guard"
	"mercator-hq/warden/pkg/ledger"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is human-readable output (default).
	FormatText OutputFormat = "text"
	// FormatJSON is indented JSON output.
	FormatJSON OutputFormat = "json"
	// FormatYAML is YAML output.
	FormatYAML OutputFormat = "yaml"
)

// ParseFormat validates a --output flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatText, nil
	}
	return "", fmt.Errorf("unsupported output format %q (use text, json or yaml)", s)
}

// Formatter formats command output.
type Formatter interface {
	FormatTo(w io.Writer, data interface{}) error
}

// TextWriter is implemented by values with their own text rendering.
type TextWriter interface {
	WriteText(w io.Writer) error
}

// TextFormatter formats output as plain text.
type TextFormatter struct{}

// FormatTo writes data to w. Values implementing TextWriter render themselves.
func (f *TextFormatter) FormatTo(w io.Writer, data interface{}) error {
	if tw, ok := data.(TextWriter); ok {
		return tw.WriteText(w)
	}
	_, err := fmt.Fprintf(w, "%v\n", data)
	return err
}

// JSONFormatter formats output as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatTo writes data to w in JSON format.
func (f *JSONFormatter) FormatTo(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// YAMLFormatter formats output as YAML. Field names follow the JSON tags so
// both formats show the same document.
type YAMLFormatter struct{}

// FormatTo writes data to w in YAML format.
func (f *YAMLFormatter) FormatTo(w io.Writer, data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return err
	}
	blockStyle(&node)

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(&node); err != nil {
		return err
	}
	return encoder.Close()
}

// blockStyle clears the flow and quoting styles inherited from JSON.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}

// NewFormatter creates a new formatter for the specified format.
func NewFormatter(format OutputFormat) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatYAML:
		return &YAMLFormatter{}
	default:
		return &TextFormatter{}
	}
}

var outcomeColors = map[guard.Outcome]*color.Color{
	guard.OutcomeAllowed:   color.New(color.FgGreen, color.Bold),
	guard.OutcomeDeferred:  color.New(color.FgYellow, color.Bold),
	guard.OutcomeRejected:  color.New(color.FgMagenta, color.Bold),
	guard.OutcomeForbidden: color.New(color.FgRed, color.Bold),
}

// Outcome renders an outcome in its terminal colour. Colour is dropped when
// stdout is not a terminal or NO_COLOR is set.
func Outcome(o guard.Outcome) string {
	c, ok := outcomeColors[o]
	if !ok {
		return string(o)
	}
	return c.Sprint(string(o))
}

// Success and Failure print status lines in green and red.
func Success(w io.Writer, format string, args ...interface{}) {
	color.New(color.FgGreen).Fprintf(w, "✓ "+format+"\n", args...)
}

// Failure prints a red status line.
func Failure(w io.Writer, format string, args ...interface{}) {
	color.New(color.FgRed).Fprintf(w, "✗ "+format+"\n", args...)
}

// RecordText renders one audit record for terminal output.
type RecordText struct {
	*ledger.Record
}

// WriteText implements TextWriter.
func (r RecordText) WriteText(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Record %d  %s\n", r.Sequence, r.ID)
	fmt.Fprintf(&b, "  Time:      %s\n", r.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"))
	fmt.Fprintf(&b, "  Outcome:   %s", Outcome(r.Outcome))
	if r.Degraded {
		b.WriteString(" (degraded)")
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "  Subject:   %s\n", r.Subject)
	fmt.Fprintf(&b, "  Corridor:  %s\n", r.Corridor)
	fmt.Fprintf(&b, "  Proposal:  %s\n", r.ProposalID)
	fmt.Fprintf(&b, "  Policy:    %s\n", r.Policy)
	fmt.Fprintf(&b, "  Evidence:  %s\n", r.Evidence)
	if r.Decision != "" {
		fmt.Fprintf(&b, "  Decision:  %s\n", r.Decision)
	}
	if len(r.ReasonCodes) > 0 {
		fmt.Fprintf(&b, "  Reasons:   %s\n", strings.Join(r.ReasonCodes, ", "))
	}
	for _, e := range r.Envelopes {
		fmt.Fprintf(&b, "  Envelope:  %s %g -> %g (baseline %g", e.Name, e.Before, e.After, e.Baseline)
		if e.Ceiling != nil {
			fmt.Fprintf(&b, ", ceiling %g", *e.Ceiling)
		}
		b.WriteString(")\n")
	}
	for _, v := range r.Verdicts {
		if v.Kind == guard.AllowFull {
			continue
		}
		fmt.Fprintf(&b, "  Verdict:   %s %s %s\n", v.Guard, v.Kind, v.Message)
	}
	for _, msg := range r.ValidationErrors {
		fmt.Fprintf(&b, "  Invalid:   %s\n", msg)
	}
	fmt.Fprintf(&b, "  Prev hash: %s\n", r.PrevHash)
	fmt.Fprintf(&b, "  Key:       %s\n", r.KeyID)
	_, err := io.WriteString(w, b.String())
	return err
}

// RecordList renders records as one line each.
type RecordList []*ledger.Record

// WriteText implements TextWriter.
func (l RecordList) WriteText(w io.Writer) error {
	for _, r := range l {
		_, err := fmt.Fprintf(w, "%6d  %s  %-10s  %-24s  %-18s  %s\n",
			r.Sequence,
			r.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
			Outcome(r.Outcome),
			r.Corridor,
			r.Subject,
			strings.Join(r.ReasonCodes, ","))
		if err != nil {
			return err
		}
	}
	return nil
}

// Package cli renders command results for terminals and for machines.
package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"reflect"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/thoreinstein/ovsnap/internal/logging"
)

// Format selects how results are written.
type Format string

// Supported output formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ErrUnknownFormat is returned for an unsupported --format value.
var ErrUnknownFormat = errors.New("unknown output format")

// Formats lists the accepted format names.
func Formats() []string {
	return []string{string(FormatText), string(FormatJSON), string(FormatYAML), string(FormatTOML)}
}

// ParseFormat validates a --format value. Empty means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatYAML, FormatTOML:
		return f, nil
	}
	return "", errors.Wrapf(ErrUnknownFormat, "%q (valid: %s)", s, strings.Join(Formats(), ", "))
}

// Printer writes results in one format.
type Printer struct {
	W      io.Writer
	Format Format

	ok, warn, fail, bold, dim *color.Color
}

// NewPrinter returns a Printer for w. Colour is used only when w is a
// terminal that supports it.
func NewPrinter(w io.Writer, f Format) *Printer {
	p := &Printer{W: w, Format: f}
	p.ok = color.New(color.FgGreen)
	p.warn = color.New(color.FgYellow)
	p.fail = color.New(color.FgRed, color.Bold)
	p.bold = color.New(color.Bold)
	p.dim = color.New(color.FgHiBlack)
	if !logging.SupportsColor(w) {
		for _, c := range []*color.Color{p.ok, p.warn, p.fail, p.bold, p.dim} {
			c.DisableColor()
		}
	}
	return p
}

// Print writes v in the structured formats, or calls text for FormatText.
func (p *Printer) Print(v any, text func(w io.Writer) error) error {
	if p.Format == FormatText || p.Format == "" {
		return text(p.W)
	}
	return Encode(p.W, p.Format, v)
}

// Encode writes v as JSON, YAML or TOML. Keys follow the json tags of v in
// every format.
func Encode(w io.Writer, f Format, v any) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(v), "encoding json")
	case FormatYAML, FormatTOML:
	default:
		return errors.Wrapf(ErrUnknownFormat, "%q", f)
	}

	tree, err := toTree(v)
	if err != nil {
		return err
	}
	if f == FormatYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(tree); err != nil {
			return errors.Wrap(err, "encoding yaml")
		}
		return errors.Wrap(enc.Close(), "encoding yaml")
	}

	tree = dropNulls(tree)
	if _, ok := tree.(map[string]any); !ok {
		tree = map[string]any{"items": tree}
	}
	return errors.Wrap(toml.NewEncoder(w).Encode(tree), "encoding toml")
}

// toTree round-trips v through JSON so every format shares its key names.
func toTree(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encoding result")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, errors.Wrap(err, "decoding result")
	}
	return numbers(tree), nil
}

func numbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = numbers(e)
		}
	case []any:
		for i, e := range t {
			t[i] = numbers(e)
		}
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		f, _ := t.Float64()
		return f
	}
	return v
}

// dropNulls removes values TOML cannot represent.
func dropNulls(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			if e == nil || (reflect.ValueOf(e).Kind() == reflect.Slice && reflect.ValueOf(e).IsNil()) {
				delete(t, k)
				continue
			}
			t[k] = dropNulls(e)
		}
	case []any:
		out := t[:0]
		for _, e := range t {
			if e != nil {
				out = append(out, dropNulls(e))
			}
		}
		return out
	}
	return v
}

// OK styles a success marker.
func (p *Printer) OK(s string) string { return p.ok.Sprint(s) }

// Warn styles a warning marker.
func (p *Printer) Warn(s string) string { return p.warn.Sprint(s) }

// Fail styles a failure marker.
func (p *Printer) Fail(s string) string { return p.fail.Sprint(s) }

// Bold styles a heading.
func (p *Printer) Bold(s string) string { return p.bold.Sprint(s) }

// Dim styles secondary text.
func (p *Printer) Dim(s string) string { return p.dim.Sprint(s) }

// Size formats a byte count, e.g. "1.2 MiB".
func Size(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

// Age formats t relative to now, e.g. "3 hours ago".
func Age(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

// Count formats n with thousands separators.
func Count(n int) string {
	return humanize.Comma(int64(n))
}

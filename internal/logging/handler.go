package logging

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// Handler writes one line per record for an operator at a terminal:
//
//	12:30:45 WARN  purge failed path="/root/my notes" error="permission denied"
//
// Attributes added through WithAttrs are rendered once, when added.
// Colour is used only when the writer supports it.
type Handler struct {
	level  slog.Leveler
	out    io.Writer
	mu     *sync.Mutex
	pal    *palette
	group  string
	prefix string
}

type palette struct {
	time, key, trace, debug, info, warn, err *color.Color
}

// NewHandler returns a Handler writing to out. A nil opts or level means
// Info.
func NewHandler(out io.Writer, opts *slog.HandlerOptions) *Handler {
	h := &Handler{level: slog.LevelInfo, out: out, mu: &sync.Mutex{}}
	if opts != nil && opts.Level != nil {
		h.level = opts.Level
	}
	if SupportsColor(out) {
		h.pal = &palette{
			time:  color.New(color.FgHiBlack),
			key:   color.New(color.FgCyan),
			trace: color.New(color.FgHiBlack),
			debug: color.New(color.FgMagenta),
			info:  color.New(color.FgGreen),
			warn:  color.New(color.FgYellow),
			err:   color.New(color.FgRed, color.Bold),
		}
	}
	return h
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	if !r.Time.IsZero() {
		b.WriteString(h.paint(h.pal.timeColor(), r.Time.Format("15:04:05")))
		b.WriteByte(' ')
	}
	label, c := levelLabel(r.Level), h.pal.levelColor(r.Level)
	b.WriteString(h.paint(c, label))
	b.WriteString(strings.Repeat(" ", 6-len(label)))
	b.WriteString(r.Message)
	b.WriteString(h.prefix)
	r.Attrs(func(a slog.Attr) bool {
		h.writeAttr(&b, h.group, a)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, b.String())
	return err
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	var b strings.Builder
	for _, a := range attrs {
		h.writeAttr(&b, h.group, a)
	}
	clone := *h
	clone.prefix = h.prefix + b.String()
	return &clone
}

// WithGroup prefixes later keys, e.g. "restore.path=/etc/openvpn".
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.group = h.group + name + "."
	return &clone
}

func (h *Handler) writeAttr(b *strings.Builder, group string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		sub := group
		if a.Key != "" {
			sub += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			h.writeAttr(b, sub, ga)
		}
		return
	}
	b.WriteByte(' ')
	b.WriteString(h.paint(h.pal.keyColor(), group+a.Key))
	b.WriteByte('=')
	b.WriteString(formatValue(a.Value))
}

func (h *Handler) paint(c *color.Color, s string) string {
	if c == nil {
		return s
	}
	return c.Sprint(s)
}

func (p *palette) timeColor() *color.Color {
	if p == nil {
		return nil
	}
	return p.time
}

func (p *palette) keyColor() *color.Color {
	if p == nil {
		return nil
	}
	return p.key
}

func (p *palette) levelColor(l slog.Level) *color.Color {
	if p == nil {
		return nil
	}
	switch {
	case l >= slog.LevelError:
		return p.err
	case l >= slog.LevelWarn:
		return p.warn
	case l >= slog.LevelInfo:
		return p.info
	case l >= slog.LevelDebug:
		return p.debug
	default:
		return p.trace
	}
}

func levelLabel(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "ERROR"
	case l >= slog.LevelWarn:
		return "WARN"
	case l >= slog.LevelInfo:
		return "INFO"
	case l >= slog.LevelDebug:
		return "DEBUG"
	default:
		return "TRACE"
	}
}

// formatValue quotes strings that would be ambiguous on one line, such as
// paths with spaces or multi-word error text.
func formatValue(v slog.Value) string {
	var s string
	switch v.Kind() {
	case slog.KindString:
		s = v.String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			s = err.Error()
		} else {
			s = v.String()
		}
	default:
		return v.String()
	}
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

package log

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"strings"
)

// MaskValue is the string used to replace sensitive values.
const MaskValue = "***REDACTED***"

// sensitiveKeys contains attribute keys whose values are always masked.
var sensitiveKeys = map[string]bool{
	"key":           true,
	"api_key":       true,
	"apikey":        true,
	"api-key":       true,
	"cx":            true,
	"token":         true,
	"secret":        true,
	"authorization": true,
	"password":      true,
	"credential":    true,
	"credentials":   true,
}

// sensitiveParams are URL query parameters stripped from logged URLs.
// "key" and "cx" are the Custom Search credential parameters; "key" also
// authenticates Gemini requests.
var sensitiveParams = map[string]bool{
	"key": true,
	"cx":  true,
}

// MaskHandler wraps an slog.Handler and masks credential attributes.
// It works with any underlying handler (text, JSON) and integrates with
// standard slog APIs.
type MaskHandler struct {
	handler slog.Handler
}

// NewMaskHandler creates a MaskHandler wrapping the given handler.
// If handler is nil, slog.Default().Handler() is used.
func NewMaskHandler(handler slog.Handler) *MaskHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &MaskHandler{handler: handler}
}

// Enabled reports whether the handler handles records at the given level.
func (h *MaskHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle masks the record's attributes and passes it on.
func (h *MaskHandler) Handle(ctx context.Context, r slog.Record) error {
	masked := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		masked.AddAttrs(h.maskAttr(a))
		return true
	})
	return h.handler.Handle(ctx, masked)
}

// WithAttrs returns a new handler with the given attributes added, masked.
func (h *MaskHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	maskedAttrs := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		maskedAttrs[i] = h.maskAttr(a)
	}
	return &MaskHandler{handler: h.handler.WithAttrs(maskedAttrs)}
}

// WithGroup returns a new handler with the given group name.
func (h *MaskHandler) WithGroup(name string) slog.Handler {
	return &MaskHandler{handler: h.handler.WithGroup(name)}
}

// maskAttr masks a single attribute, recursively handling groups.
func (h *MaskHandler) maskAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		maskedAttrs := make([]slog.Attr, len(attrs))
		for i, groupAttr := range attrs {
			maskedAttrs[i] = h.maskAttr(groupAttr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(maskedAttrs...)}
	}

	if sensitiveKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, MaskValue)
	}

	if a.Value.Kind() == slog.KindString {
		if v := a.Value.String(); strings.Contains(v, "://") {
			return slog.String(a.Key, MaskURL(v))
		}
	}
	return a
}

// MaskURL replaces credential query parameters in rawURL with MaskValue.
// Non-URL strings and URLs without credential parameters are returned
// unchanged.
func MaskURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	q := u.Query()
	changed := false
	for param := range q {
		if sensitiveParams[strings.ToLower(param)] {
			q.Set(param, MaskValue)
			changed = true
		}
	}
	if !changed {
		return rawURL
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// NewLogger creates an slog.Logger with credential masking.
// Verbose selects LevelDebug; otherwise LevelWarn, keeping normal runs
// quiet next to the pipeline's stdout progress lines.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	textHandler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(NewMaskHandler(textHandler))
}

// NewJSONLogger is like NewLogger but emits JSON records, for log
// aggregation setups.
func NewJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	jsonHandler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(NewMaskHandler(jsonHandler))
}

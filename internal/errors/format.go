package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
)

// Style selects how Fprint renders an error.
type Style string

const (
	// StyleText is the multi-line, colored terminal rendering.
	StyleText Style = "text"

	// StyleCompact is one "file:line:col: CODE: message: cause" line.
	StyleCompact Style = "compact"

	// StyleJSON is one JSON object per error.
	StyleJSON Style = "json"
)

// Styles lists the accepted styles in display order.
var Styles = []Style{StyleText, StyleCompact, StyleJSON}

// ParseStyle parses a style name. The empty string is StyleText.
func ParseStyle(s string) (Style, error) {
	switch Style(s) {
	case "", StyleText:
		return StyleText, nil
	case StyleCompact, StyleJSON:
		return Style(s), nil
	}
	names := make([]string, len(Styles))
	for i, st := range Styles {
		names[i] = string(st)
	}
	return "", New("E204").
		WithDetail(fmt.Sprintf("Unknown error format %q.", s)).
		WithSuggestion("Use one of " + strings.Join(names, ", "))
}

// ANSI color codes for terminal output.
const (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorCyan  = "\033[36m"
	colorWhite = "\033[37m"
	colorGray  = "\033[90m"
	colorBold  = "\033[1m"
)

// colorEnabled controls whether ANSI colors are used by StyleText.
var colorEnabled = true

// SetColors turns ANSI colors on or off.
func SetColors(on bool) {
	colorEnabled = on
}

// color wraps text in ANSI color codes if colors are enabled.
func color(code, text string) string {
	if !colorEnabled {
		return text
	}
	return code + text + colorReset
}

func red(text string) string   { return color(colorRed, text) }
func cyan(text string) string  { return color(colorCyan, text) }
func white(text string) string { return color(colorWhite, text) }
func gray(text string) string  { return color(colorGray, text) }
func bold(text string) string  { return color(colorBold, text) }

// Format returns the error formatted for terminal display.
func (e *Error) Format() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(red(bold("ERROR")))
	if e.Code != "" {
		b.WriteString(white(bold(" " + e.Code)))
	}
	b.WriteString(white(bold(": ")))
	b.WriteString(white(e.Message))
	b.WriteString("\n\n")

	if e.Location != nil {
		e.writeLocation(&b)
	}

	if e.Detail != "" {
		for _, line := range wrapText(e.Detail, 70) {
			b.WriteString("  " + line + "\n")
		}
		b.WriteString("\n")
	}

	if e.Suggestion != "" {
		b.WriteString("  " + cyan("Hint: ") + e.Suggestion + "\n\n")
	}

	if e.Example != "" {
		b.WriteString("  " + cyan("Example:") + "\n")
		for _, line := range strings.Split(e.Example, "\n") {
			b.WriteString("    " + line + "\n")
		}
		b.WriteString("\n")
	}

	if e.Wrapped != nil {
		b.WriteString("  " + gray("Cause: ") + e.Wrapped.Error() + "\n\n")
	}

	return b.String()
}

// writeLocation writes the location line and the numbered input lines read
// by WithLocation, marking the failing line and column.
func (e *Error) writeLocation(b *strings.Builder) {
	b.WriteString("  " + cyan(e.Location.String()) + "\n\n")
	if len(e.Context) == 0 {
		return
	}

	first := max(1, e.Location.Line-contextLines/2)
	for i, line := range e.Context {
		n := first + i
		if n != e.Location.Line {
			fmt.Fprintf(b, "    %4d%s%s\n", n, gray(" │ "), line)
			continue
		}
		fmt.Fprintf(b, "  %s%4d%s%s\n", red("→ "), n, gray(" │ "), line)
		if e.Location.Column > 0 {
			fmt.Fprintf(b, "       %s%s%s\n", gray("│ "), strings.Repeat(" ", e.Location.Column-1), red("^"))
		}
	}
	b.WriteString("\n")
}

// FormatCompact returns the error on a single line, prefixed with its
// location when it has one.
func (e *Error) FormatCompact() string {
	if e.Location == nil {
		return e.Error()
	}
	return e.Location.String() + ": " + e.Error()
}

// jsonError is the wire shape of FormatJSON.
type jsonError struct {
	Code       string    `json:"code,omitempty"`
	Category   Category  `json:"category,omitempty"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	Location   *Location `json:"location,omitempty"`
	Suggestion string    `json:"suggestion,omitempty"`
	Example    string    `json:"example,omitempty"`
	Cause      string    `json:"cause,omitempty"`
}

// FormatJSON returns the error as a JSON object.
func (e *Error) FormatJSON() string {
	out := jsonError{
		Code:       e.Code,
		Category:   e.Category,
		Message:    e.Message,
		Detail:     e.Detail,
		Location:   e.Location,
		Suggestion: e.Suggestion,
		Example:    e.Example,
	}
	if e.Wrapped != nil {
		out.Cause = e.Wrapped.Error()
	}
	data, err := json.Marshal(out)
	if err != nil {
		// Only strings and ints are marshalled.
		return fmt.Sprintf(`{"message":%q}`, e.Error())
	}
	return string(data)
}

// wrapText wraps text to the specified width.
func wrapText(text string, width int) []string {
	if text == "" {
		return nil
	}
	if len(text) <= width {
		return []string{text}
	}

	var lines []string
	var current strings.Builder
	for _, word := range strings.Fields(text) {
		if current.Len() > 0 && current.Len()+len(word)+1 > width {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}

// Fprint writes err to w in the given style. An error with no *Error in its
// chain is rendered as a code-less Error carrying its message.
func Fprint(w io.Writer, err error, style Style) {
	if err == nil {
		return
	}
	var pe *Error
	if !stderrors.As(err, &pe) {
		pe = &Error{Message: err.Error()}
	}

	switch style {
	case StyleCompact:
		fmt.Fprintln(w, pe.FormatCompact())
	case StyleJSON:
		fmt.Fprintln(w, pe.FormatJSON())
	default:
		fmt.Fprint(w, pe.Format())
	}
}

package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
)

const (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorBlue  = "\033[34m"
	colorCyan  = "\033[36m"
	colorGray  = "\033[90m"
	colorBold  = "\033[1m"
)

// painter applies ANSI codes when enabled.
type painter bool

func (p painter) paint(code, text string) string {
	if !p {
		return text
	}
	return code + text + colorReset
}

// Format renders the error for a terminal. color enables ANSI escapes.
func (e *PulseError) Format(color bool) string {
	p := painter(color)
	var b strings.Builder

	b.WriteString("\n")
	if e.Code != "" {
		b.WriteString(p.paint(colorRed+colorBold, "ERROR "+e.Code+": "))
	} else {
		b.WriteString(p.paint(colorRed+colorBold, "ERROR: "))
	}
	b.WriteString(e.Message)
	b.WriteString("\n\n")

	if e.Location != nil {
		b.WriteString("  " + p.paint(colorCyan, e.Location.String()) + "\n\n")
		if len(e.Context) > 0 {
			first := e.Location.Line - len(e.Context)/2
			if first < 1 {
				first = 1
			}
			for i, line := range e.Context {
				n := first + i
				marker := "    "
				if n == e.Location.Line {
					marker = "  " + p.paint(colorRed, "→ ")
				}
				fmt.Fprintf(&b, "%s%4d%s%s\n", marker, n, p.paint(colorGray, " │ "), line)
				if n == e.Location.Line && e.Location.Column > 0 {
					b.WriteString("        " + p.paint(colorGray, "│ "))
					b.WriteString(strings.Repeat(" ", e.Location.Column-1))
					b.WriteString(p.paint(colorRed, "^") + "\n")
				}
			}
			b.WriteString("\n")
		}
	}

	if e.Detail != "" {
		for _, line := range wrapText(e.Detail, 70) {
			b.WriteString("  " + line + "\n")
		}
		b.WriteString("\n")
	}

	if e.Wrapped != nil {
		b.WriteString("  " + p.paint(colorGray, "Cause: ") + e.Wrapped.Error() + "\n\n")
	}

	if e.Suggestion != "" {
		b.WriteString("  " + p.paint(colorBlue, "Hint: ") + e.Suggestion + "\n\n")
	}

	return b.String()
}

// FormatCompact returns a single line.
func (e *PulseError) FormatCompact() string {
	var b strings.Builder
	if e.Location != nil {
		b.WriteString(e.Location.String())
		b.WriteString(": ")
	}
	b.WriteString(e.Error())
	return b.String()
}

type jsonError struct {
	Code       string    `json:"code,omitempty"`
	Category   Category  `json:"category"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	Location   *Location `json:"location,omitempty"`
	Suggestion string    `json:"suggestion,omitempty"`
	Cause      string    `json:"cause,omitempty"`
}

// FormatJSON returns the error as a JSON object, for --log-format=json.
func (e *PulseError) FormatJSON() string {
	out := jsonError{
		Code:       e.Code,
		Category:   e.Category,
		Message:    e.Message,
		Detail:     e.Detail,
		Location:   e.Location,
		Suggestion: e.Suggestion,
	}
	if e.Wrapped != nil {
		out.Cause = e.Wrapped.Error()
	}
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Sprintf(`{"message":%q}`, e.Error())
	}
	return string(data)
}

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

// Print writes err to w, formatted when it is a PulseError.
func Print(w io.Writer, err error, color bool) {
	var pe *PulseError
	if stderrors.As(err, &pe) {
		fmt.Fprint(w, pe.Format(color))
		return
	}
	fmt.Fprintf(w, "\n%s %s\n\n", painter(color).paint(colorRed+colorBold, "ERROR:"), err.Error())
}

package payload

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Rendering limits, matching the defaults of the tooling that consumes the
// journal files.
const (
	maxArrayLength  = 100
	maxStringLength = 10000
	maxBufferBytes  = 50
	breakLength     = 128
	minLineWidth    = 16
	maxInspectDepth = 1000
)

var identifierKey = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z_0-9]*$`)

// Inspect renders v in expanded human-readable form: one property per line,
// two-space indentation, bare identifier keys and single-quoted strings.
func Inspect(v Value) string {
	var b strings.Builder
	writeValue(&b, v, 0, 0)
	return b.String()
}

// Deleted renders the journal record for a deleted identifier.
func Deleted(id string) string {
	return "deleted: " + Inspect(id)
}

func writeValue(b *strings.Builder, v Value, indent, depth int) {
	switch t := v.(type) {
	case nil:
		b.WriteString("null")
	case bool:
		b.WriteString(strconv.FormatBool(t))
	case json.Number:
		b.WriteString(formatNumberLiteral(string(t)))
	case string:
		writeString(b, t, indent)
	case Object:
		if depth >= maxInspectDepth {
			b.WriteString("[Object]")
			return
		}
		writeObject(b, t, indent, depth+1)
	case []Value:
		if depth >= maxInspectDepth {
			b.WriteString("[Array]")
			return
		}
		writeArray(b, t, indent, depth+1)
	case Buffer:
		writeBuffer(b, t)
	default:
		writeString(b, fmt.Sprint(t), indent)
	}
}

func writeObject(b *strings.Builder, obj Object, indent, depth int) {
	if len(obj) == 0 {
		b.WriteString("{}")
		return
	}
	b.WriteByte('{')
	for i, field := range obj {
		if i > 0 {
			b.WriteByte(',')
		}
		newline(b, indent+2)
		b.WriteString(formatKey(field.Key))
		b.WriteString(": ")
		writeValue(b, field.Value, indent+2, depth)
	}
	newline(b, indent)
	b.WriteByte('}')
}

func writeArray(b *strings.Builder, list []Value, indent, depth int) {
	if len(list) == 0 {
		b.WriteString("[]")
		return
	}
	shown := list
	if len(shown) > maxArrayLength {
		shown = shown[:maxArrayLength]
	}
	b.WriteByte('[')
	for i, item := range shown {
		if i > 0 {
			b.WriteByte(',')
		}
		newline(b, indent+2)
		writeValue(b, item, indent+2, depth)
	}
	if remaining := len(list) - len(shown); remaining > 0 {
		b.WriteByte(',')
		newline(b, indent+2)
		fmt.Fprintf(b, "... %d more item%s", remaining, plural(remaining))
	}
	newline(b, indent)
	b.WriteByte(']')
}

func writeBuffer(b *strings.Builder, buf Buffer) {
	b.WriteString("<Buffer")
	shown := buf
	if len(shown) > maxBufferBytes {
		shown = shown[:maxBufferBytes]
	}
	for _, c := range shown {
		fmt.Fprintf(b, " %02x", c)
	}
	if remaining := len(buf) - len(shown); remaining > 0 {
		fmt.Fprintf(b, " ... %d more byte%s", remaining, plural(remaining))
	}
	b.WriteByte('>')
}

// writeString quotes s. Long strings containing newlines are split after each
// newline and joined with " +" continuations.
func writeString(b *strings.Builder, s string, indent int) {
	trailer := ""
	if count := utf8.RuneCountInString(s); count > maxStringLength {
		runes := []rune(s)
		s = string(runes[:maxStringLength])
		remaining := count - maxStringLength
		trailer = fmt.Sprintf("... %d more character%s", remaining, plural(remaining))
	}

	length := utf8.RuneCountInString(s)
	if length > minLineWidth && length > breakLength-indent-4 {
		lines := splitAfterNewline(s)
		for i, line := range lines {
			if i > 0 {
				b.WriteString(" +")
				newline(b, indent+2)
			}
			b.WriteString(quote(line))
		}
	} else {
		b.WriteString(quote(s))
	}
	b.WriteString(trailer)
}

func splitAfterNewline(s string) []string {
	lines := strings.SplitAfter(s, "\n")
	if len(lines) > 1 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func formatKey(key string) string {
	if identifierKey.MatchString(key) {
		return key
	}
	return quote(key)
}

// quote picks the first of ', " and ` that does not occur in s and escapes
// control characters, backslashes and the chosen quote.
func quote(s string) string {
	q := '\''
	if strings.ContainsRune(s, '\'') {
		switch {
		case !strings.ContainsRune(s, '"'):
			q = '"'
		case !strings.ContainsRune(s, '`') && !strings.Contains(s, "${"):
			q = '`'
		}
	}

	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteRune(q)
	for _, r := range s {
		switch {
		case r == q:
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\\':
			b.WriteString(`\\`)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\t':
			b.WriteString(`\t`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\b':
			b.WriteString(`\b`)
		case r == '\f':
			b.WriteString(`\f`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, `\x%02X`, r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteRune(q)
	return b.String()
}

func formatNumberLiteral(literal string) string {
	f, err := strconv.ParseFloat(literal, 64)
	if err != nil && !math.IsInf(f, 0) {
		return literal
	}
	return formatFloat(f)
}

// formatFloat prints f the way a JavaScript engine would.
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		if math.Signbit(f) {
			return "-0"
		}
		return "0"
	}

	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		formatted := strconv.FormatFloat(f, 'e', -1, 64)
		mantissa, exponent, _ := strings.Cut(formatted, "e")
		sign := exponent[:1]
		digits := strings.TrimLeft(exponent[1:], "0")
		if digits == "" {
			digits = "0"
		}
		return mantissa + "e" + sign + digits
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func newline(b *strings.Builder, indent int) {
	b.WriteByte('\n')
	b.WriteString(strings.Repeat(" ", indent))
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

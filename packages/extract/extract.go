package extract

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/tidwall/gjson"
)

// Matcher turns a non-blank line into a message, or reports no match.
type Matcher func(line string) (string, bool)

// DefaultMatchers in priority order.
var DefaultMatchers = []Matcher{
	JSONMessage,
	LogfmtMessage,
	StripPrefix,
}

var logfmtMsg = regexp.MustCompile(`msg=(?:"([^"]*)"|'([^']*)'|(\S+))`)

var prefixes = []*regexp.Regexp{
	regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2}(?:[.,]\d+)?\s+-\s+[A-Z]+\s+-\s+`),
	regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2}(?:[.,]\d+)?\s+`),
	regexp.MustCompile(`^\[[A-Z]+\]\s+`),
	regexp.MustCompile(`^(?:DEBUG|INFO|WARN|WARNING|ERROR|CRITICAL)\s*[:\-]\s+`),
}

// JSONMessage matches a line holding a JSON object with a string msg field,
// falling back to a string message field.
func JSONMessage(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") || !strings.HasSuffix(trimmed, "}") {
		return "", false
	}
	if !gjson.Valid(trimmed) {
		return "", false
	}
	obj := gjson.Parse(trimmed)
	if !obj.IsObject() {
		return "", false
	}
	for _, field := range []string{"msg", "message"} {
		if v := obj.Get(field); v.Type == gjson.String {
			return v.Str, true
		}
	}
	return "", false
}

// LogfmtMessage matches a msg= field that is double-quoted, single-quoted or
// a bare token.
func LogfmtMessage(line string) (string, bool) {
	m := logfmtMsg.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	for _, g := range m[1:] {
		if g != "" {
			return g, true
		}
	}
	return "", true
}

// StripPrefix removes the first recognised timestamp or level prefix.
func StripPrefix(line string) (string, bool) {
	for _, re := range prefixes {
		if loc := re.FindStringIndex(line); loc != nil {
			return line[loc[1]:], true
		}
	}
	return "", false
}

// Line applies matchers in order to a single line. Trailing whitespace is
// removed first; a blank line yields "".
func Line(line string, matchers ...Matcher) string {
	line = strings.TrimRightFunc(line, unicode.IsSpace)
	if line == "" {
		return ""
	}
	if len(matchers) == 0 {
		matchers = DefaultMatchers
	}
	for _, m := range matchers {
		if msg, ok := m(line); ok {
			return msg
		}
	}
	return line
}

// Messages extracts one message per input line using DefaultMatchers.
func Messages(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.TrimSuffix(text, "\n")

	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = Line(l)
	}
	return strings.Join(lines, "\n")
}

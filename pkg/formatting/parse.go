package formatting

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrParseFailed is returned when no JSON value of the requested shape can
// be recovered from model output.
var ErrParseFailed = errors.New("failed to parse response")

var fencePattern = regexp.MustCompile("(?s)```[A-Za-z0-9_-]*[ \t]*\r?\n?(.*?)```")

const excerptLimit = 120

// Parse unmarshals model output into T. Candidates are tried in order: the
// whole trimmed content, each markdown code fence, then the first balanced
// JSON object or array embedded in prose.
func Parse[T any](content string) (T, error) {
	var result T
	for _, candidate := range Candidates(content) {
		var v T
		if err := json.Unmarshal([]byte(candidate), &v); err == nil {
			return v, nil
		}
	}
	return result, fmt.Errorf("%w: %s", ErrParseFailed, excerpt(content))
}

// Candidates returns the substrings of content that may hold a JSON value,
// in the order Parse tries them.
func Candidates(content string) []string {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	out := []string{content}
	for _, m := range fencePattern.FindAllStringSubmatch(content, -1) {
		if block := strings.TrimSpace(m[1]); block != "" {
			out = append(out, block)
		}
	}
	if embedded, ok := embeddedJSON(content); ok {
		out = append(out, embedded)
	}
	return out
}

// embeddedJSON scans for the first '{' or '[' that starts a complete JSON
// value and returns that value's text.
func embeddedJSON(content string) (string, bool) {
	for i := 0; i < len(content); i++ {
		if content[i] != '{' && content[i] != '[' {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(content[i:]))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err == nil {
			return string(bytes.TrimSpace(raw)), true
		}
	}
	return "", false
}

func excerpt(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= excerptLimit {
		return s
	}
	return s[:excerptLimit] + "..."
}

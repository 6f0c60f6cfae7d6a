package parse

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ErrNoJSON is returned when no candidate in the content decodes into T.
var ErrNoJSON = errors.New("no JSON value found")

// JSONAs decodes content into T, tolerating fences, prose and minor syntax
// errors.
//
//	id, err := parse.JSONAs[Identification]("```json\n{'name': 'Monstera',}\n```")
func JSONAs[T any](content string) (T, error) {
	var result T
	content = strings.TrimSpace(content)
	if content == "" {
		return result, ErrNoJSON
	}

	var lastErr error
	for _, candidate := range candidates(content) {
		value, err := decode[T](candidate)
		if err == nil {
			return value, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		return result, ErrNoJSON
	}
	return result, fmt.Errorf("%w: %w", ErrNoJSON, lastErr)
}

func decode[T any](candidate string) (T, error) {
	var result T
	err := json.Unmarshal([]byte(candidate), &result)
	if err == nil {
		return result, nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(candidate)
	if repairErr != nil {
		return result, fmt.Errorf("unmarshal %T: %w (repair failed: %v)", result, err, repairErr)
	}
	if err := json.Unmarshal([]byte(repaired), &result); err != nil {
		return result, fmt.Errorf("unmarshal repaired %T: %w", result, err)
	}
	return result, nil
}

// candidates lists the substrings worth decoding, most specific first and
// without duplicates.
func candidates(content string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	if fenced, ok := StripCodeFence(content); ok {
		add(fenced)
		if balanced, ok := firstBalanced(fenced); ok {
			add(balanced)
		}
	}
	if balanced, ok := firstBalanced(content); ok {
		add(balanced)
	}
	add(content)
	return out
}

// StripCodeFence returns the body of the first ``` fenced block, dropping an
// optional language tag.
func StripCodeFence(content string) (string, bool) {
	start := strings.Index(content, "```")
	if start < 0 {
		return "", false
	}
	rest := content[start+3:]
	if newline := strings.IndexByte(rest, '\n'); newline >= 0 && !strings.ContainsAny(rest[:newline], "{[") {
		rest = rest[newline+1:]
	}
	end := strings.Index(rest, "```")
	if end < 0 {
		return rest, true
	}
	return rest[:end], true
}

// firstBalanced returns the first {...} or [...] span whose brackets balance,
// ignoring brackets inside double-quoted strings.
func firstBalanced(content string) (string, bool) {
	start := strings.IndexAny(content, "{[")
	if start < 0 {
		return "", false
	}

	var stack []byte
	inString, escaped := false, false
	for i := start; i < len(content); i++ {
		c := content[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return "", false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return content[start : i+1], true
			}
		}
	}
	// Unterminated: hand the tail to jsonrepair.
	return content[start:], true
}

package ai

import (
	"encoding/json"
	"errors"
	"strings"

	json5 "github.com/yosuke-furukawa/json5/encoding/json5"
)

var errNoJSON = errors.New("no JSON value found")

// stripFences removes markdown code fence markers the model tends to add.
func stripFences(raw string) string {
	s := strings.ReplaceAll(raw, "```json", "")
	s = strings.ReplaceAll(s, "```JSON", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// slice returns the text between the first open and last close delimiter, inclusive.
func slice(s string, left, right byte) (string, bool) {
	start := strings.IndexByte(s, left)
	end := strings.LastIndexByte(s, right)
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return s[start : end+1], true
}

// decode parses strict JSON first and falls back to JSON5 for near-JSON
// output (trailing commas, single quotes, comments).
func decode(text string, v any) error {
	err := json.Unmarshal([]byte(text), v)
	if err == nil {
		return nil
	}
	if err5 := json5.Unmarshal([]byte(text), v); err5 == nil {
		return nil
	}
	return err
}

// ExtractArray pulls a JSON array out of free-form model text. On any
// failure it returns an empty, non-nil slice and a *MalformedOutputError.
func ExtractArray[T any](raw string) ([]T, error) {
	text, ok := slice(stripFences(raw), '[', ']')
	if !ok {
		return []T{}, &MalformedOutputError{Raw: raw, Err: errNoJSON}
	}
	var out []T
	if err := decode(text, &out); err != nil {
		return []T{}, &MalformedOutputError{Raw: raw, Err: err}
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

// ExtractObject pulls a single JSON object out of free-form model text.
func ExtractObject[T any](raw string) (*T, error) {
	text, ok := slice(stripFences(raw), '{', '}')
	if !ok {
		return nil, &MalformedOutputError{Raw: raw, Err: errNoJSON}
	}
	var out T
	if err := decode(text, &out); err != nil {
		return nil, &MalformedOutputError{Raw: raw, Err: err}
	}
	return &out, nil
}

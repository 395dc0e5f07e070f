// Package llm - extract.go provides tolerant JSON extraction from model output.
package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CleanJSONBlock removes markdown code block wrappers from JSON responses.
// LLMs often wrap JSON in ```json ... ``` blocks even when instructed not to.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)

	// Handle ```json ... ``` blocks
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		return strings.TrimSpace(text)
	}

	// Handle generic ``` ... ``` blocks
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		// Skip potential language identifier on first line
		if idx := strings.Index(text, "\n"); idx >= 0 {
			firstLine := text[:idx]
			if len(firstLine) < 20 && !strings.Contains(firstLine, " ") && !strings.Contains(firstLine, "{") {
				text = text[idx+1:]
			}
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		return strings.TrimSpace(text)
	}

	return text
}

// ExtractJSONString finds the JSON document in a model response using a
// three-tier strategy: direct parse, then a fenced code block, then the first
// top-level {...} span found by bracket matching. It returns the JSON text and
// the tier that succeeded (1-3), or an error when every tier fails.
func ExtractJSONString(response string) (string, int, error) {
	// Tier 1: the response is already valid JSON.
	trimmed := strings.TrimSpace(response)
	if json.Valid([]byte(trimmed)) {
		return trimmed, 1, nil
	}

	// Tier 2: a fenced code block containing JSON.
	if fenced := extractFencedBlock(response); fenced != "" && json.Valid([]byte(fenced)) {
		return fenced, 2, nil
	}

	// Tier 3: the first balanced top-level object span.
	if span := extractObjectSpan(response); span != "" && json.Valid([]byte(span)) {
		return span, 3, nil
	}

	return "", 0, fmt.Errorf("no parseable JSON found in response (%d bytes)", len(response))
}

// ExtractJSON unmarshals a model response into target using the same
// three-tier strategy as ExtractJSONString.
func ExtractJSON(response string, target any) (int, error) {
	jsonText, tier, err := ExtractJSONString(response)
	if err != nil {
		return 0, err
	}
	if err := json.Unmarshal([]byte(jsonText), target); err != nil {
		return 0, fmt.Errorf("extracted JSON does not match expected structure: %w", err)
	}
	return tier, nil
}

// extractFencedBlock returns the content of the first ``` fenced block, or "".
func extractFencedBlock(text string) string {
	start := strings.Index(text, "```")
	if start < 0 {
		return ""
	}
	rest := text[start+3:]
	// Drop the language identifier line if present.
	if idx := strings.Index(rest, "\n"); idx >= 0 {
		firstLine := strings.TrimSpace(rest[:idx])
		if firstLine != "" && !strings.Contains(firstLine, "{") {
			rest = rest[idx+1:]
		}
	}
	end := strings.Index(rest, "```")
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(rest[:end])
}

// extractObjectSpan returns the first balanced {...} span in text, skipping
// braces inside JSON string literals, or "".
func extractObjectSpan(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
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
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

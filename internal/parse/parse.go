// Package parse extracts structured data from free-text model output.
//
// Models wrap answers in tool-call preambles, fenced code blocks and
// markdown bullets in no particular combination; the extraction here peels
// those layers in a fixed order before decoding. Decode failures propagate
// to the caller — every caller holds its own safe default.
package parse

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	toolCallRe = regexp.MustCompile(`\[Calling tool [^\]]* with args [^\]]*\]`)
	fenceRe    = regexp.MustCompile("(?s)```(?:json)?\n?(.*?)```")
	bulletRe   = regexp.MustCompile(`^[\s\-*]+`)
)

// JSON decodes the model response into v after stripping tool-call
// preambles, code fences and leading bullet markers.
func JSON(response string, v any) error {
	cleaned := Clean(response)
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return fmt.Errorf("decoding model response: %w", err)
	}
	return nil
}

// Clean returns the response text with tool-call preambles, code fences and
// leading bullet markers removed. Used directly for plain-text answers.
func Clean(response string) string {
	// Anything before the last tool-call announcement is protocol noise.
	if locs := toolCallRe.FindAllStringIndex(response, -1); len(locs) > 0 {
		response = response[locs[len(locs)-1][1]:]
	}

	if m := fenceRe.FindStringSubmatch(response); m != nil {
		response = m[1]
	}
	response = strings.TrimSpace(response)

	lines := strings.Split(response, "\n")
	for i, line := range lines {
		lines[i] = bulletRe.ReplaceAllString(line, "")
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}

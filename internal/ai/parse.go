package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// decodeObject decodes model output into v. Models occasionally wrap the
// requested JSON object in a fenced code block despite instructions, so a
// failed direct decode retries against the first fenced block before giving
// up. A failure here is presumed prompt- or model-related, never
// credential-related, so callers must not rotate keys on it.
func decodeObject(text string, v any) error {
	if err := json.Unmarshal([]byte(text), v); err == nil {
		return nil
	}
	m := fencedBlock.FindStringSubmatch(text)
	if m == nil {
		return fmt.Errorf("ai: response is not a JSON object")
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), v); err != nil {
		return fmt.Errorf("ai: fenced block is not a JSON object: %w", err)
	}
	return nil
}

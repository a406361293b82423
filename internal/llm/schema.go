package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrSchemaMismatch wraps validation failures from ValidateJSON.
var ErrSchemaMismatch = errors.New("response does not match schema")

// ValidateJSON checks text against schema and decodes it into out when valid.
// Models sometimes wrap JSON in code fences; those are stripped first.
func ValidateJSON(schema json.RawMessage, text string, out any) error {
	doc := StripCodeFence(text)
	if doc == "" {
		return fmt.Errorf("%w: empty response", ErrSchemaMismatch)
	}
	if len(schema) > 0 {
		res, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schema), gojsonschema.NewStringLoader(doc))
		if err != nil {
			return fmt.Errorf("validate json: %w", err)
		}
		if !res.Valid() {
			msgs := make([]string, 0, len(res.Errors()))
			for _, e := range res.Errors() {
				msgs = append(msgs, e.String())
			}
			return fmt.Errorf("%w: %s", ErrSchemaMismatch, strings.Join(msgs, "; "))
		}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(doc), out); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}

// StripCodeFence removes a surrounding ``` or ```json fence.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

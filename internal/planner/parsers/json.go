package parsers

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	logx "github.com/tripflow-core/server/pkg/logger"
)

// basic safety limits to avoid pathological model outputs
const (
	maxContentLen = 128 * 1024 // 128KB
	maxErrSnippet = 200
)

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// DecodeJSON extracts the JSON object a model was asked to produce and
// unmarshals it into v. Models wrap output in markdown fences or
// surrounding prose often enough that three strategies are tried in
// order: the whole content, a fenced block, the outermost brace span.
func DecodeJSON(content string, v any) error {
	if len(content) > maxContentLen {
		logx.Warn().
			Str("component", "json_parser").
			Int("max_len", maxContentLen).
			Int("orig_len", len(content)).
			Msg("content truncated due to size limit")
		content = content[:maxContentLen]
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return fmt.Errorf("empty model output")
	}

	if err := json.Unmarshal([]byte(content), v); err == nil {
		return nil
	}

	if m := fencedJSON.FindStringSubmatch(content); len(m) == 2 {
		if err := json.Unmarshal([]byte(m[1]), v); err == nil {
			return nil
		}
	}

	if start := strings.Index(content, "{"); start >= 0 {
		if end := strings.LastIndex(content, "}"); end > start {
			if err := json.Unmarshal([]byte(content[start:end+1]), v); err == nil {
				return nil
			}
		}
	}

	return fmt.Errorf("no parseable JSON object in model output: %s", safeSnippet(content))
}

func safeSnippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxErrSnippet {
		return s
	}
	return s[:maxErrSnippet]
}

package cli

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/PaesslerAG/jsonpath"
)

// EvaluatePath applies a JSONPath expression to a stored JSON blob and
// returns the result as indented JSON.
func EvaluatePath(blob, path string) (string, error) {
	var doc any
	if err := json.Unmarshal([]byte(blob), &doc); err != nil {
		return "", fmt.Errorf("decode stored value: %w", err)
	}
	result, err := jsonpath.Get(path, doc)
	if err != nil {
		return "", fmt.Errorf("evaluate %q: %w", path, err)
	}
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	return string(out), nil
}

// PrettyJSON indents blob, returning it unchanged when it is not valid JSON.
func PrettyJSON(blob string) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(blob), "", "  "); err != nil {
		return blob
	}
	return buf.String()
}

package transform

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/eo-cat/sentinel-stac/internal/odata"
)

// RewriteHrefs replaces every local work-dir path in the item with
// the corresponding catalogue node URL, so consumers resolve assets
// against the catalogue rather than a directory that no longer
// exists.
func RewriteHrefs(item []byte, workDir, productURL string) ([]byte, error) {
	var doc any
	if err := json.Unmarshal(item, &doc); err != nil {
		return nil, fmt.Errorf("parsing item for href rewrite: %w", err)
	}
	prefix := strings.TrimRight(workDir, "/") + "/"
	rewritten := rewriteValue(doc, prefix, productURL)
	out, err := json.Marshal(rewritten)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func rewriteValue(v any, prefix, productURL string) any {
	switch val := v.(type) {
	case map[string]any:
		for k, child := range val {
			val[k] = rewriteValue(child, prefix, productURL)
		}
		return val
	case []any:
		for i, child := range val {
			val[i] = rewriteValue(child, prefix, productURL)
		}
		return val
	case string:
		if rel, ok := strings.CutPrefix(val, prefix); ok {
			return odata.NodeFileURL(productURL, strings.Split(rel, "/")...)
		}
		return val
	default:
		return val
	}
}

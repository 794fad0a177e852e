package parser

import (
	"encoding/json"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/chateval/backend/pkg/logger"
)

// ContextItem is one evidence snippet with a citation source. Order of items
// follows flattening order and is meaningful downstream (top-k truncation
// and ranking tie-breaks).
type ContextItem struct {
	ID          string
	Text        string
	Source      string
	Score       *float64
	TokensCount *int
	Meta        map[string]interface{}
}

// FlattenContext normalizes heterogeneous context JSON into a flat item
// list. It accepts raw JSON bytes, a JSON string, or an already-decoded
// value, and never fails: malformed input yields an empty list.
func FlattenContext(raw interface{}) []ContextItem {
	decoded := decodeContext(raw)

	root, _ := decoded.(map[string]interface{})
	data, _ := root["data"].(map[string]interface{})

	var records []interface{}
	if list, ok := data["vector_data"].([]interface{}); ok {
		records = list
	} else if list, ok := root["vector_data"].([]interface{}); ok {
		records = list
	} else if list, ok := root["data"].([]interface{}); ok {
		records = list
	} else {
		records = findVectorData(decoded)
	}

	items := make([]ContextItem, 0, len(records))
	for _, record := range records {
		v, ok := record.(map[string]interface{})
		if !ok {
			continue
		}

		id := stringify(v["id"])
		source := stringify(v["source_url"])
		if source == "" {
			source = stringify(v["source"])
		}
		if source == "" {
			source = id
		}

		text := stringify(v["text"])
		if text == "" {
			text = stringify(v["snippet"])
		}

		items = append(items, ContextItem{
			ID:     id,
			Text:   text,
			Source: source,
			Meta:   v,
		})
	}

	enrichFromSources(items, root, data)

	return items
}

// findVectorData walks unknown nestings depth-first and concatenates every
// list found under a key literally named "vector_data". Map keys are visited
// in sorted order so the flattening order is stable between runs; json.Unmarshal
// into map[string]interface{} does not retain document order.
func findVectorData(obj interface{}) []interface{} {
	var found []interface{}

	switch val := obj.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for key := range val {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			child := val[key]
			if key == "vector_data" {
				if list, ok := child.([]interface{}); ok {
					found = append(found, list...)
					continue
				}
			}
			found = append(found, findVectorData(child)...)
		}
	case []interface{}:
		for _, child := range val {
			found = append(found, findVectorData(child)...)
		}
	}

	return found
}

// enrichFromSources attaches score/tokens_count from a sibling
// sources.vectors_info structure. Enrichment is best-effort and never
// fails the flattening.
func enrichFromSources(items []ContextItem, root, data map[string]interface{}) {
	sources, _ := data["sources"].(map[string]interface{})
	if sources == nil {
		sources, _ = root["sources"].(map[string]interface{})
	}
	if sources == nil {
		return
	}

	infoList, _ := sources["vectors_info"].([]interface{})
	if len(infoList) == 0 {
		return
	}

	infoMap := make(map[string]map[string]interface{}, len(infoList))
	for _, entry := range infoList {
		info, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		key := stringify(info["vector_id"])
		if key == "" {
			key = stringify(info["id"])
		}
		if key != "" {
			infoMap[key] = info
		}
	}

	for i := range items {
		info, ok := infoMap[items[i].ID]
		if !ok {
			continue
		}
		if score, ok := toFloat(info["score"]); ok {
			items[i].Score = &score
		}
		tokens := info["tokens_count"]
		if tokens == nil {
			tokens = info["tokens"]
		}
		if count, ok := toFloat(tokens); ok {
			n := int(count)
			items[i].TokensCount = &n
		}
	}
}

func decodeContext(raw interface{}) interface{} {
	switch v := raw.(type) {
	case nil:
		return nil
	case []byte:
		var decoded interface{}
		if err := json.Unmarshal(v, &decoded); err != nil {
			logger.Warn("Failed to decode context JSON", zap.Error(err))
			return nil
		}
		return decoded
	case json.RawMessage:
		return decodeContext([]byte(v))
	case string:
		var decoded interface{}
		if err := json.Unmarshal([]byte(v), &decoded); err != nil {
			return nil
		}
		return decoded
	default:
		return raw
	}
}

func stringify(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(v)
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

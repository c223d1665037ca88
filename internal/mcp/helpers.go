package mcpserver

import (
	"encoding/json"
	"slices"
	"strings"
)

func boolPtr(v bool) *bool { return &v }

// splitIDs parses a comma-separated id list, dropping blanks.
func splitIDs(s string) []string {
	var ids []string
	for _, part := range strings.Split(s, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// optFloat returns a pointer to args[key] when it is present and numeric.
func optFloat(args map[string]any, key string) *float64 {
	if v, ok := args[key].(float64); ok {
		return &v
	}
	return nil
}

// optString returns a pointer to args[key] when it is present.
func optString(args map[string]any, key string) *string {
	if v, ok := args[key].(string); ok {
		return &v
	}
	return nil
}

// idsMetadata builds the approval metadata the frontend highlights from.
func idsMetadata(key string, ids []string) string {
	data, err := json.Marshal(map[string][]string{key: ids})
	if err != nil {
		return "{}"
	}
	return string(data)
}

func sortActions(actions []PendingAction) {
	slices.SortFunc(actions, func(a, b PendingAction) int {
		if c := strings.Compare(a.CreatedAt, b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

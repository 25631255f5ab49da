package models

import "strings"

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// NameKey normalises an entity name for case-insensitive matching.
func NameKey(name string) string { return strings.ToLower(strings.TrimSpace(name)) }

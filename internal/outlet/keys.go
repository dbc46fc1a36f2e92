// Package outlet centralizes outlet identity normalization. Group membership
// lists store display names ("Outlet 3") while device documents are keyed by
// underscore form ("Outlet_3"); every comparison between the two must go
// through Canonical.
package outlet

import "strings"

// Canonical folds an outlet name or key into the comparable form: lowercase,
// with every run of whitespace or underscores collapsed to one underscore.
func Canonical(name string) string {
	fields := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return r == '_' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	return strings.Join(fields, "_")
}

// Same reports whether two outlet identifiers refer to the same outlet,
// regardless of which encoding each side uses.
func Same(a, b string) bool {
	return Canonical(a) == Canonical(b)
}

// Key converts a display name to the underscore key form used under devices/.
func Key(display string) string {
	return strings.Join(strings.Fields(display), "_")
}

// DisplayName converts an underscore key to the space-separated form used in
// group membership lists.
func DisplayName(key string) string {
	return strings.Join(strings.FieldsFunc(key, func(r rune) bool { return r == '_' }), " ")
}

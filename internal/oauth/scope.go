package oauth

import "strings"

// Scope is an ordered set of scope tokens. The zero value is the empty scope.
type Scope []string

// ParseScope splits a space-delimited scope string into tokens, dropping
// duplicates while preserving first-seen order.
func ParseScope(raw string) Scope {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(fields))
	scope := make(Scope, 0, len(fields))
	for _, token := range fields {
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		scope = append(scope, token)
	}
	return scope
}

// String renders the scope as a space-delimited string.
func (s Scope) String() string {
	return strings.Join(s, " ")
}

// IsEmpty reports whether the scope has no tokens.
func (s Scope) IsEmpty() bool {
	return len(s) == 0
}

// Subset reports whether every token in s is present in other.
func (s Scope) Subset(other Scope) bool {
	if len(s) > len(other) {
		return false
	}
	allowed := make(map[string]struct{}, len(other))
	for _, token := range other {
		allowed[token] = struct{}{}
	}
	for _, token := range s {
		if _, ok := allowed[token]; !ok {
			return false
		}
	}
	return true
}

// Contains reports whether the scope includes the given token.
func (s Scope) Contains(token string) bool {
	for _, t := range s {
		if t == token {
			return true
		}
	}
	return false
}

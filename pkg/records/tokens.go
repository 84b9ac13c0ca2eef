package records

// TokenSet is a set of protected names such as an "unknown artist" marker.
// Membership is case-insensitive and whitespace-normalized.
type TokenSet map[string]struct{}

// NewTokenSet builds a set from tokens, ignoring blanks.
func NewTokenSet(tokens []string) TokenSet {
	s := make(TokenSet, len(tokens))
	for _, t := range tokens {
		if n := NormalizeName(t); n != "" {
			s[FoldName(n)] = struct{}{}
		}
	}
	return s
}

// Contains reports whether name is a protected token.
func (s TokenSet) Contains(name string) bool {
	if len(s) == 0 {
		return false
	}
	_, ok := s[FoldName(NormalizeName(name))]
	return ok
}

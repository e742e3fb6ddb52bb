package security

import "strings"

// FuzzyMatch returns true if query fuzzy-matches target.
// Matching is case-insensitive and succeeds on substring match or if
// the query characters appear as a subsequence in the target.
func FuzzyMatch(target, query string) bool {
	if query == "" {
		return true
	}
	t := strings.ToLower(target)
	q := strings.ToLower(query)
	if strings.Contains(t, q) {
		return true
	}
	qr := []rune(q)
	i := 0
	for _, ch := range t {
		if i < len(qr) && qr[i] == ch {
			i++
			if i >= len(qr) {
				return true
			}
		}
	}
	return false
}

// FilterRules returns the rules whose name, description or tokens match
// query, keeping table order.
func FilterRules(rules []Rule, query string) []Rule {
	var out []Rule
	for _, r := range rules {
		if ruleMatches(r, query) {
			out = append(out, r)
		}
	}
	return out
}

func ruleMatches(r Rule, query string) bool {
	if FuzzyMatch(r.Name, query) || FuzzyMatch(r.Description, query) {
		return true
	}
	for _, tok := range r.Tokens {
		if FuzzyMatch(tok, query) {
			return true
		}
	}
	return false
}

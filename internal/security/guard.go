package security

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// commandPosition is the context an AnchoredCommand token must follow: the
// start of the line or a shell control operator. A plain `\b` is not enough
// because `?`, `=` and `-` are word boundaries too, which would make
// "?format=3" or "--output-format" look like a standalone command.
const commandPosition = `(?:^|[;&|]\s*)`

// matcher is one compiled token of a rule.
type matcher struct {
	rule  int
	token string
	re    *regexp.Regexp
}

// Guard classifies command lines against an ordered denylist. A Guard is
// immutable once built and safe for concurrent use.
type Guard struct {
	rules    []Rule
	matchers []matcher
}

// NewGuard compiles rules in order. An invalid rule is a configuration
// defect and is reported here rather than during classification.
func NewGuard(rules []Rule) (*Guard, error) {
	g := &Guard{rules: copyRules(rules)}
	seen := map[string]bool{}
	for i, r := range g.rules {
		if strings.TrimSpace(r.Name) == "" {
			return nil, fmt.Errorf("rule %d: name cannot be empty", i)
		}
		if seen[r.Name] {
			return nil, fmt.Errorf("rule %q: duplicate name", r.Name)
		}
		seen[r.Name] = true
		if len(r.Tokens) == 0 {
			return nil, fmt.Errorf("rule %q: no tokens", r.Name)
		}
		for _, tok := range r.Tokens {
			expr, err := compileExpr(r, tok)
			if err != nil {
				return nil, fmt.Errorf("rule %q: %w", r.Name, err)
			}
			re, err := regexp.Compile(expr)
			if err != nil {
				return nil, fmt.Errorf("rule %q: compile %q: %w", r.Name, tok, err)
			}
			g.matchers = append(g.matchers, matcher{rule: i, token: tok, re: re})
		}
	}
	return g, nil
}

// MustNewGuard is like NewGuard but panics on an invalid rule table.
func MustNewGuard(rules []Rule) *Guard {
	g, err := NewGuard(rules)
	if err != nil {
		panic(err)
	}
	return g
}

func compileExpr(r Rule, tok string) (string, error) {
	if strings.TrimSpace(tok) == "" {
		return "", errors.New("empty token")
	}
	switch r.Shape {
	case AnchoredCommand:
		return `(?i)` + commandPosition + regexp.QuoteMeta(tok) + `\b` + r.Args, nil
	case BareWord:
		return `(?i)\b` + regexp.QuoteMeta(tok) + `\b` + r.Args, nil
	case Pattern:
		return `(?i)` + tok + r.Args, nil
	default:
		return "", fmt.Errorf("unknown shape %d", int(r.Shape))
	}
}

// Classify returns the decision for command. The first matching rule, in
// table order, denies; otherwise the command is allowed.
func (g *Guard) Classify(command string) Decision {
	cmd := strings.TrimSpace(command)
	if cmd == "" {
		return Allow()
	}
	for _, m := range g.matchers {
		loc := m.re.FindStringIndex(cmd)
		if loc == nil {
			continue
		}
		r := g.rules[m.rule]
		token := m.token
		if r.Shape == Pattern {
			token = cmd[loc[0]:loc[1]]
		}
		return Deny(r.Name, token, fmt.Sprintf("%s: %s (%q)", r.Name, r.Description, token))
	}
	return Allow()
}

// Evaluate makes a Guard usable wherever a policy is expected. The working
// directory is ignored.
func (g *Guard) Evaluate(command, _ string) Decision {
	return g.Classify(command)
}

// Rules returns a copy of the guard's rule table.
func (g *Guard) Rules() []Rule {
	return copyRules(g.rules)
}

var defaultGuard = MustNewGuard(defaultRules)

// Default returns the process-wide guard built from DefaultRules.
func Default() *Guard {
	return defaultGuard
}

// Classify classifies command with the default guard.
func Classify(command string) Decision {
	return defaultGuard.Classify(command)
}

// CheckAllowed returns nil if the command is allowed to run, or a
// *BlockedError naming the rule that blocked it.
func CheckAllowed(command string) error {
	return defaultGuard.Classify(command).Err()
}

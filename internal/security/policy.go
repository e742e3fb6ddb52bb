package security

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kballard/go-shellquote"
)

// Policy layers optional execution restrictions over a Guard. The denylist
// always runs first; a deny from it wins over everything else.
type Policy struct {
	guard *Guard
	allow []*regexp.Regexp
	// restrict confines paths to the working directory passed to Evaluate.
	restrict bool
}

var windowsPath = regexp.MustCompile(`[A-Za-z]:\\[^\\"']+`)

// NewPolicy builds a policy over guard (the default guard when nil). When
// allowPatterns is non-empty a command must match at least one of them.
func NewPolicy(guard *Guard, allowPatterns []string, restrictToWorkspace bool) (*Policy, error) {
	if guard == nil {
		guard = defaultGuard
	}
	p := &Policy{guard: guard, restrict: restrictToWorkspace}
	for _, expr := range allowPatterns {
		re, err := regexp.Compile(`(?i)` + expr)
		if err != nil {
			return nil, fmt.Errorf("allow pattern %q: %w", expr, err)
		}
		p.allow = append(p.allow, re)
	}
	return p, nil
}

// Guard returns the denylist the policy consults.
func (p *Policy) Guard() *Guard {
	return p.guard
}

// Evaluate decides whether command may run from cwd. It does not touch the
// filesystem; cwd is compared lexically and only when it is absolute.
func (p *Policy) Evaluate(command, cwd string) Decision {
	d := p.guard.Classify(command)
	if !d.Allowed {
		return d
	}
	cmd := strings.TrimSpace(command)
	if len(p.allow) > 0 && !p.allowed(cmd) {
		return Deny("allowlist", "", "not in allowlist")
	}
	if p.restrict {
		return checkWorkspace(cmd, cwd)
	}
	return Allow()
}

func (p *Policy) allowed(cmd string) bool {
	for _, re := range p.allow {
		if re.MatchString(cmd) {
			return true
		}
	}
	return false
}

func checkWorkspace(cmd, cwd string) Decision {
	if strings.Contains(cmd, "../") || strings.Contains(cmd, `..\`) {
		return Deny("workspace", "..", "path traversal detected")
	}
	if cwd == "" || !filepath.IsAbs(cwd) {
		return Allow()
	}
	root := filepath.Clean(cwd)
	for _, raw := range absolutePaths(cmd) {
		if !within(root, filepath.Clean(raw)) {
			return Deny("workspace", raw, "path outside working dir")
		}
	}
	return Allow()
}

// absolutePaths extracts absolute path arguments from cmd. POSIX paths come
// from shell-split words (also split on redirection and control operators);
// Windows drive paths are matched on the raw text since shell splitting
// would consume their backslashes.
func absolutePaths(cmd string) []string {
	words, err := shellquote.Split(cmd)
	if err != nil {
		words = strings.Fields(cmd)
	}
	var out []string
	for _, w := range words {
		for _, piece := range strings.FieldsFunc(w, isOperator) {
			if strings.HasPrefix(piece, "/") {
				out = append(out, piece)
			}
		}
	}
	for _, m := range windowsPath.FindAllString(cmd, -1) {
		out = append(out, strings.TrimSpace(m))
	}
	return out
}

func isOperator(r rune) bool {
	return strings.ContainsRune("<>|;&", r)
}

func within(root, path string) bool {
	if path == root {
		return true
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Package security decides whether a shell command line may be executed.
//
// The guard works on the raw command string with lexical heuristics only; it
// does not parse shell grammar. Each denylist entry is a Rule whose Shape
// controls where its tokens may appear in the command line.
package security

// Shape selects how a rule's tokens are located in a command line.
type Shape int

const (
	// AnchoredCommand matches a token only in command position: at the start
	// of the line or after a `;`, `&` or `|` separator (optionally followed
	// by whitespace). Used for names that commonly appear inside URLs, flags
	// and identifiers, e.g. "format".
	AnchoredCommand Shape = iota
	// BareWord matches a token bounded by word edges anywhere in the line.
	BareWord
	// Pattern treats each token as a raw regular expression.
	Pattern
)

// String returns the shape name used in listings.
func (s Shape) String() string {
	switch s {
	case AnchoredCommand:
		return "anchored-command"
	case BareWord:
		return "bare-word"
	case Pattern:
		return "pattern"
	default:
		return "unknown"
	}
}

// Rule is one denylist entry.
type Rule struct {
	Name        string
	Description string
	Shape       Shape
	// Tokens are literal command names, except for the Pattern shape where
	// they are regular expressions.
	Tokens []string
	// Args is an optional regular expression that must follow the token,
	// e.g. `\s+-[rf]{1,2}\b` for "rm".
	Args string
}

var defaultRules = []Rule{
	{
		Name:        "disk-format",
		Description: "disk formatting command",
		Shape:       AnchoredCommand,
		Tokens:      []string{"format"},
	},
	{
		Name:        "disk-utility",
		Description: "disk partitioning or filesystem creation utility",
		Shape:       BareWord,
		Tokens:      []string{"mkfs", "diskpart"},
	},
	{
		Name:        "recursive-delete",
		Description: "recursive or forced file removal",
		Shape:       BareWord,
		Tokens:      []string{"rm"},
		Args:        `\s+-[rf]{1,2}\b`,
	},
	{
		Name:        "windows-delete",
		Description: "forced or quiet Windows file deletion",
		Shape:       BareWord,
		Tokens:      []string{"del"},
		Args:        `\s+/[fq]\b`,
	},
	{
		Name:        "windows-rmdir",
		Description: "recursive Windows directory removal",
		Shape:       BareWord,
		Tokens:      []string{"rmdir"},
		Args:        `\s+/s\b`,
	},
	{
		Name:        "raw-disk-write",
		Description: "raw block copy with dd",
		Shape:       BareWord,
		Tokens:      []string{"dd"},
		Args:        `\s+if=`,
	},
	{
		Name:        "block-device-redirect",
		Description: "output redirected onto a block device",
		Shape:       Pattern,
		Tokens:      []string{`>\s*/dev/sd[a-z]`},
	},
	{
		Name:        "disk-wipe",
		Description: "filesystem signature or data wipe",
		Shape:       BareWord,
		Tokens:      []string{"wipefs", "shred"},
	},
	{
		Name:        "power-state",
		Description: "system shutdown or reboot",
		Shape:       BareWord,
		Tokens:      []string{"shutdown", "reboot", "poweroff"},
	},
	{
		Name:        "privilege-escalation",
		Description: "privilege escalation",
		Shape:       AnchoredCommand,
		Tokens:      []string{"sudo", "su", "doas"},
	},
	{
		Name:        "fork-bomb",
		Description: "shell fork bomb",
		Shape:       Pattern,
		Tokens:      []string{`:\(\)\s*\{.*\};\s*:`},
	},
}

// DefaultRules returns a copy of the built-in denylist in evaluation order.
func DefaultRules() []Rule {
	return copyRules(defaultRules)
}

func copyRules(in []Rule) []Rule {
	out := make([]Rule, len(in))
	for i, r := range in {
		r.Tokens = append([]string(nil), r.Tokens...)
		out[i] = r
	}
	return out
}

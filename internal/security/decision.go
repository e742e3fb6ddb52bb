package security

// BlockedMessage prefixes every message produced for a denied command.
// Callers match on it, so it must not change.
const BlockedMessage = "blocked by safety guard"

// Decision is the outcome of classifying a command line. The zero value
// denies nothing and is not a valid decision; use Allow or Deny.
type Decision struct {
	Allowed bool
	// Rule is the name of the rule that denied the command.
	Rule string
	// Token is the denylisted token (or matched text for pattern rules).
	Token  string
	Reason string
}

// Allow returns an allowing decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny returns a denying decision.
func Deny(rule, token, reason string) Decision {
	return Decision{Rule: rule, Token: token, Reason: reason}
}

// Err converts a deny into a *BlockedError; it returns nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &BlockedError{Rule: d.Rule, Reason: d.Reason}
}

// String renders the decision for logs and listings.
func (d Decision) String() string {
	if d.Allowed {
		return "allow"
	}
	return "deny: " + d.Reason
}

// BlockedError reports a command refused by the guard.
type BlockedError struct {
	Rule   string
	Reason string
}

func (e *BlockedError) Error() string {
	return BlockedMessage + ": " + e.Reason
}

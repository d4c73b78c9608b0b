package auth

import "strings"

// Allowlist is the frozen set of emails permitted to hold the nutritionist
// role. It is built once at startup and never mutated.
type Allowlist struct {
	emails map[string]struct{}
}

func NewAllowlist(emails []string) *Allowlist {
	set := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		if n := NormalizeEmail(e); n != "" {
			set[n] = struct{}{}
		}
	}
	return &Allowlist{emails: set}
}

func (a *Allowlist) Contains(email string) bool {
	if a == nil {
		return false
	}
	_, ok := a.emails[NormalizeEmail(email)]
	return ok
}

func (a *Allowlist) Len() int {
	if a == nil {
		return 0
	}
	return len(a.emails)
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

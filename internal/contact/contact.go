package contact

import "strings"

// MaxTrusted is the maximum number of trusted contacts on a trip, in
// addition to the guardian.
const MaxTrusted = 5

type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// CleanPhone strips everything except digits and a single leading "+".
func CleanPhone(raw string) string {
	var b strings.Builder
	for i, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			continue
		}
		if r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "+" {
		return ""
	}
	return cleaned
}

// Clean returns a copy with a normalized phone number.
func (c Contact) Clean() Contact {
	c.Phone = CleanPhone(c.Phone)
	return c
}

// Equal compares contacts by phone number.
func (c Contact) Equal(other Contact) bool {
	return c.Phone == other.Phone
}

// SanitizeTrusted cleans phone numbers, drops entries without one and caps
// the list at MaxTrusted.
func SanitizeTrusted(list []Contact) []Contact {
	out := make([]Contact, 0, MaxTrusted)
	for _, c := range list {
		c = c.Clean()
		if c.Phone == "" {
			continue
		}
		if len(out) == MaxTrusted {
			break
		}
		out = append(out, c)
	}
	return out
}

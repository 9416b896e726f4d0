package models

import "strings"

// Recipient is the closed set of beneficiary categories a campaign can target.
type Recipient string

const (
	RecipientMedical   Recipient = "Medical"
	RecipientEducation Recipient = "Education"
	RecipientEmergency Recipient = "Emergency"
	RecipientCommunity Recipient = "Community"
)

var recipients = []Recipient{
	RecipientMedical,
	RecipientEducation,
	RecipientEmergency,
	RecipientCommunity,
}

// Recipients returns the accepted recipient values in display order.
func Recipients() []Recipient {
	out := make([]Recipient, len(recipients))
	copy(out, recipients)
	return out
}

// ParseRecipient matches s case-insensitively against the known recipients.
func ParseRecipient(s string) (Recipient, bool) {
	s = strings.TrimSpace(s)
	for _, r := range recipients {
		if strings.EqualFold(string(r), s) {
			return r, true
		}
	}
	return "", false
}

// RecipientList renders the accepted values for error messages.
func RecipientList() string {
	names := make([]string, len(recipients))
	for i, r := range recipients {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}

// SPDX-FileCopyrightText: 2025 FinOps Cloud
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"strings"
)

// PersonRef identifies an assignee, reporting manager, or escalation
// manager. It is populated once at ingestion; display names and emails are
// never re-derived from formatted strings at read time.
type PersonRef struct {
	ID    string `json:"id" bson:"id"`
	Name  string `json:"name" bson:"name"`
	Email string `json:"email" bson:"email"`
}

// ParsePersonRef accepts the legacy combined "Name (email)" display format
// and splits it into a PersonRef. Plain names and bare email addresses are
// accepted as-is. This is an ingestion-boundary helper only.
func ParsePersonRef(raw string) PersonRef {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return PersonRef{}
	}

	open := strings.LastIndex(raw, "(")
	if open > 0 && strings.HasSuffix(raw, ")") {
		name := strings.TrimSpace(raw[:open])
		email := strings.TrimSpace(raw[open+1 : len(raw)-1])
		if strings.Contains(email, "@") {
			return PersonRef{Name: name, Email: email}
		}
	}

	if strings.Contains(raw, "@") && !strings.Contains(raw, " ") {
		return PersonRef{Email: raw}
	}
	return PersonRef{Name: raw}
}

// Display returns a human-readable label, preferring the name.
func (p PersonRef) Display() string {
	if p.Name != "" {
		return p.Name
	}
	if p.Email != "" {
		return p.Email
	}
	return p.ID
}

// Emails collects the non-empty email addresses from a list of refs.
func Emails(people []PersonRef) []string {
	out := make([]string, 0, len(people))
	for _, p := range people {
		if p.Email != "" {
			out = append(out, p.Email)
		}
	}
	return out
}

// SPDX-FileCopyrightText: 2025 FinOps Cloud
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"fmt"
	"strings"
)

// DelayReason is the fixed taxonomy of causes accepted when a subtask is
// moved to delayed. ReasonOther requires accompanying free text.
type DelayReason string

const (
	DelayTechnicalIssue  DelayReason = "technical_issue"
	DelayDataUnavailable DelayReason = "data_unavailable"
	DelayAwaitingInput   DelayReason = "awaiting_input"
	DelayResourceShift   DelayReason = "resource_shift"
	DelayOther           DelayReason = "other"
)

// OverdueReason is the fixed taxonomy of causes captured when a subtask
// leaves the overdue state.
type OverdueReason string

const (
	OverdueTechnicalIssue  OverdueReason = "technical_issue"
	OverdueDataUnavailable OverdueReason = "data_unavailable"
	OverdueStaffShortage   OverdueReason = "staff_shortage"
	OverdueMissedHandover  OverdueReason = "missed_handover"
	OverdueOther           OverdueReason = "other"
)

var delayReasons = map[DelayReason]bool{
	DelayTechnicalIssue:  true,
	DelayDataUnavailable: true,
	DelayAwaitingInput:   true,
	DelayResourceShift:   true,
	DelayOther:           true,
}

var overdueReasons = map[OverdueReason]bool{
	OverdueTechnicalIssue:  true,
	OverdueDataUnavailable: true,
	OverdueStaffShortage:   true,
	OverdueMissedHandover:  true,
	OverdueOther:           true,
}

// ValidateDelayReason checks the reason against the taxonomy. "other"
// requires non-empty notes.
func ValidateDelayReason(reason DelayReason, notes string) error {
	if reason == "" {
		return fmt.Errorf("delay reason is required")
	}
	if !delayReasons[reason] {
		return fmt.Errorf("unknown delay reason %q", reason)
	}
	if reason == DelayOther && strings.TrimSpace(notes) == "" {
		return fmt.Errorf("delay reason %q requires notes", DelayOther)
	}
	return nil
}

// ValidateOverdueReason checks the reason against the taxonomy. "other"
// requires non-empty free text.
func ValidateOverdueReason(reason OverdueReason, notes string) error {
	if reason == "" {
		return fmt.Errorf("overdue reason is required")
	}
	if !overdueReasons[reason] {
		return fmt.Errorf("unknown overdue reason %q", reason)
	}
	if reason == OverdueOther && strings.TrimSpace(notes) == "" {
		return fmt.Errorf("overdue reason %q requires notes", OverdueOther)
	}
	return nil
}

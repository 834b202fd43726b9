package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCommand(Config{OutputWriter: &out})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestClassifyOverdue(t *testing.T) {
	out, err := runCommand(t, "classify", "--start", "09:00", "--status", "pending", "--at", "2025-06-02T09:05:00Z")
	require.NoError(t, err)
	assert.Contains(t, out, "overdue by 5 minute(s)")
}

func TestClassifyWarning(t *testing.T) {
	out, err := runCommand(t, "classify", "--start", "09:00", "--status", "pending", "--at", "2025-06-02T08:50:00Z")
	require.NoError(t, err)
	assert.Contains(t, out, "warning, 10 minute(s) remaining")
}

func TestClassifyCompletedIsNone(t *testing.T) {
	out, err := runCommand(t, "classify", "--start", "09:00", "--status", "completed", "--at", "2025-06-02T12:00:00Z")
	require.NoError(t, err)
	assert.Contains(t, out, "none")
}

func TestClassifyJSONOutput(t *testing.T) {
	out, err := runCommand(t, "classify", "--start", "09:00", "--status", "pending", "--at", "2025-06-02T09:05:00Z", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"kind": "overdue"`)
	assert.Contains(t, out, `"offsetMinutes": 5`)
}

func TestClassifyRejectsUnknownStatus(t *testing.T) {
	_, err := runCommand(t, "classify", "--start", "09:00", "--status", "paused")
	require.Error(t, err)
}

func TestScheduleWeeklyActiveDay(t *testing.T) {
	// 2025-06-02 is a Monday.
	out, err := runCommand(t, "schedule", "--kind", "weekly", "--weekdays", "mon",
		"--effective-from", "2025-01-01", "--date", "2025-06-02")
	require.NoError(t, err)
	assert.Contains(t, out, "active on 2025-06-02")
}

func TestScheduleWeeklyOffDay(t *testing.T) {
	out, err := runCommand(t, "schedule", "--kind", "weekly", "--weekdays", "fri",
		"--effective-from", "2025-01-01", "--date", "2025-06-02")
	require.NoError(t, err)
	assert.Contains(t, out, "not active on 2025-06-02")
}

func TestScheduleRejectsTooManyWeekdays(t *testing.T) {
	_, err := runCommand(t, "schedule", "--kind", "weekly", "--weekdays", "mon,tue,wed",
		"--effective-from", "2025-01-01", "--date", "2025-06-02")
	require.Error(t, err)
}

func TestScheduleRejectsUnknownWeekday(t *testing.T) {
	_, err := runCommand(t, "schedule", "--kind", "weekly", "--weekdays", "noday",
		"--effective-from", "2025-01-01")
	require.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := runCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "slactl")
}

package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderDelayedNotice(t *testing.T) {
	body, err := RenderDelayedNotice(DelayedNoticeParams{
		TaskName:    "Daily close",
		SubtaskName: "Upload ledger",
		ClientName:  "Acme",
		ActorName:   "Jane Doe",
		DelayReason: "data_unavailable",
		DelayNotes:  "bank feed late",
		DelayedAt:   "2025-06-10T09:20:00Z",
	})
	require.NoError(t, err)

	assert.Contains(t, body, "Upload ledger")
	assert.Contains(t, body, "Daily close")
	assert.Contains(t, body, "Acme")
	assert.Contains(t, body, "data_unavailable")
	assert.Contains(t, body, "bank feed late")
}

func TestRenderDelayedNotice_NoNotes(t *testing.T) {
	body, err := RenderDelayedNotice(DelayedNoticeParams{
		TaskName:    "Daily close",
		SubtaskName: "Upload ledger",
		DelayReason: "technical_issue",
	})
	require.NoError(t, err)
	assert.NotContains(t, body, "Notes:")
	assert.Contains(t, body, "delayed by the system")
}

func TestRenderOverdueNotice(t *testing.T) {
	body, err := RenderOverdueNotice(OverdueNoticeParams{
		TaskName:       "Daily close",
		SubtaskName:    "Upload ledger",
		ClientName:     "Acme",
		StartTime:      "09:00",
		OverdueMinutes: 25,
	})
	require.NoError(t, err)

	assert.Contains(t, body, "09:00")
	assert.Contains(t, body, "25 minute(s)")
	assert.Contains(t, body, "repeats until")
}

func TestRenderEscapesHTML(t *testing.T) {
	body, err := RenderDelayedNotice(DelayedNoticeParams{
		SubtaskName: "<script>alert(1)</script>",
	})
	require.NoError(t, err)
	assert.NotContains(t, body, "<script>")
}

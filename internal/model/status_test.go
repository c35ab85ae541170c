package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProcessingStatus(t *testing.T) {
	tests := []struct {
		in   string
		want ProcessingStatus
	}{
		{"PENDING", ProcessingStatusPending},
		{"processed", ProcessingStatusProcessed},
		{" Failed ", ProcessingStatusFailed},
		{"RETRY", ProcessingStatusRetry},
	}
	for _, tt := range tests {
		got, err := ParseProcessingStatus(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestParseProcessingStatus_Unknown(t *testing.T) {
	_, err := ParseProcessingStatus("DONE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown processing status "DONE"`)
}

func TestParseSyncStatus(t *testing.T) {
	got, err := ParseSyncStatus("not_synced")
	require.NoError(t, err)
	assert.Equal(t, SyncStatusNotSynced, got)

	_, err = ParseSyncStatus("PENDING")
	assert.Error(t, err)
}

func TestProcessingStatus_Eligible(t *testing.T) {
	assert.True(t, ProcessingStatusPending.Eligible())
	assert.True(t, ProcessingStatusRetry.Eligible())
	assert.False(t, ProcessingStatusProcessed.Eligible())
	assert.False(t, ProcessingStatusFailed.Eligible())

	assert.True(t, ProcessingStatusProcessed.Terminal())
	assert.True(t, ProcessingStatusFailed.Terminal())
	assert.False(t, ProcessingStatusRetry.Terminal())
}

func TestNewRunSummary(t *testing.T) {
	s := NewRunSummary(
		RetrievalCounts{Total: 4, Success: 3, Skipped: 1},
		ProcessingCounts{Total: 5, Success: 2, Failed: 2, Retried: 1},
		ExportCounts{Total: 2, Success: 1, Failed: 1},
	)
	assert.Equal(t, RunSummary{
		Retrieved:  3,
		Processed:  2,
		Failed:     2,
		Retried:    1,
		Synced:     1,
		SyncFailed: 1,
	}, s)
}

func TestNewProcessedInvoice_NotSynced(t *testing.T) {
	p := NewProcessedInvoice("p1", "r1", InvoiceData{InvoiceNumber: "FV/1"}, fixedNow)
	assert.Equal(t, SyncStatusNotSynced, p.SyncStatus)
	assert.Equal(t, "r1", p.RawInvoiceID)
	assert.Equal(t, fixedNow, p.CreatedAt)
	assert.Equal(t, fixedNow, p.UpdatedAt)

	r := NewRawInvoice("r1", Email{ID: "m1"}, fixedNow)
	assert.Equal(t, ProcessingStatusPending, r.Status)
	assert.Equal(t, "m1", r.EmailID)
}

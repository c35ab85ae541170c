package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/invoice-cli/internal/config"
	"github.com/sells-group/invoice-cli/internal/model"
)

func TestFormatStatus(t *testing.T) {
	counts := &model.StatusCounts{
		Raw: map[model.ProcessingStatus]int{
			model.ProcessingStatusPending: 2,
			model.ProcessingStatusFailed:  1,
		},
		Processed: map[model.SyncStatus]int{
			model.SyncStatusSynced: 5,
		},
	}

	var buf bytes.Buffer
	formatStatus(&buf, counts)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1+len(model.ProcessingStatuses)+len(model.SyncStatuses))
	assert.Equal(t, []string{"KIND", "STATUS", "COUNT"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"raw", "PENDING", "2"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"raw", "RETRY", "0"}, strings.Fields(lines[2]))
	assert.Equal(t, []string{"raw", "FAILED", "1"}, strings.Fields(lines[4]))
	assert.Equal(t, []string{"processed", "SYNCED", "5"}, strings.Fields(lines[6]))
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printJSON(&buf, model.ExportCounts{Total: 2, Success: 1, Failed: 1}))
	assert.JSONEq(t, `{"total":2,"success":1,"failed":1}`, buf.String())
}

func TestWriteConfig_MasksSecrets(t *testing.T) {
	c := &config.Config{
		Store:      config.StoreConfig{Driver: "postgres", DatabaseURL: "postgres://app:hunter2@db:5432/invoices"},
		Extraction: config.ExtractionConfig{APIKey: "sk-ant-secret", Model: "claude-sonnet-4-5-20250929"},
		Notify:     config.NotifyConfig{SendGridKey: "SG.secret", Channels: []string{"email"}},
	}

	var buf bytes.Buffer
	require.NoError(t, writeConfig(&buf, c))

	out := buf.String()
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "sk-ant-secret")
	assert.NotContains(t, out, "SG.secret")
	assert.Contains(t, out, "postgres://app:***@db:5432/invoices")
	assert.Contains(t, out, "claude-sonnet-4-5-20250929")
}

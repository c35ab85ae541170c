package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// ProcessingStatus is the lifecycle state of a raw invoice.
type ProcessingStatus string

const (
	ProcessingStatusPending   ProcessingStatus = "PENDING"
	ProcessingStatusProcessed ProcessingStatus = "PROCESSED"
	ProcessingStatusFailed    ProcessingStatus = "FAILED"
	ProcessingStatusRetry     ProcessingStatus = "RETRY"
)

// ProcessingStatuses lists every raw invoice status in lifecycle order.
var ProcessingStatuses = []ProcessingStatus{
	ProcessingStatusPending,
	ProcessingStatusRetry,
	ProcessingStatusProcessed,
	ProcessingStatusFailed,
}

// Eligible reports whether a raw invoice in this status is picked up by a
// processing run.
func (s ProcessingStatus) Eligible() bool {
	return s == ProcessingStatusPending || s == ProcessingStatusRetry
}

// Terminal reports whether no further processing happens without an
// external reset.
func (s ProcessingStatus) Terminal() bool {
	return s == ProcessingStatusProcessed || s == ProcessingStatusFailed
}

// ParseProcessingStatus converts a stored representation into a
// ProcessingStatus. Matching is case-insensitive.
func ParseProcessingStatus(s string) (ProcessingStatus, error) {
	v := ProcessingStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch v {
	case ProcessingStatusPending, ProcessingStatusProcessed, ProcessingStatusFailed, ProcessingStatusRetry:
		return v, nil
	default:
		return "", eris.Errorf("model: unknown processing status %q", s)
	}
}

// SyncStatus tracks whether a processed invoice reached the spreadsheet.
type SyncStatus string

const (
	SyncStatusNotSynced SyncStatus = "NOT_SYNCED"
	SyncStatusSynced    SyncStatus = "SYNCED"
	SyncStatusFailed    SyncStatus = "FAILED"
)

// SyncStatuses lists every sync status.
var SyncStatuses = []SyncStatus{
	SyncStatusNotSynced,
	SyncStatusSynced,
	SyncStatusFailed,
}

// ParseSyncStatus converts a stored representation into a SyncStatus.
func ParseSyncStatus(s string) (SyncStatus, error) {
	v := SyncStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch v {
	case SyncStatusNotSynced, SyncStatusSynced, SyncStatusFailed:
		return v, nil
	default:
		return "", eris.Errorf("model: unknown sync status %q", s)
	}
}

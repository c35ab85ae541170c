package model

// RetrievalCounts is the outcome of one retrieval stage.
type RetrievalCounts struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// ProcessingCounts is the outcome of one processing batch. It is the batch's
// only contract with its caller.
type ProcessingCounts struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Failed  int `json:"failed"`
	Retried int `json:"retried"`
}

// ExportCounts is the outcome of one export stage.
type ExportCounts struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

// RunSummary aggregates stage counts into the report sent at the end of a run.
type RunSummary struct {
	Retrieved  int `json:"retrieved"`
	Processed  int `json:"processed"`
	Failed     int `json:"failed"`
	Retried    int `json:"retried"`
	Synced     int `json:"synced"`
	SyncFailed int `json:"sync_failed"`
}

// NewRunSummary folds stage counts into a RunSummary.
func NewRunSummary(r RetrievalCounts, p ProcessingCounts, e ExportCounts) RunSummary {
	return RunSummary{
		Retrieved:  r.Success,
		Processed:  p.Success,
		Failed:     p.Failed,
		Retried:    p.Retried,
		Synced:     e.Success,
		SyncFailed: e.Failed,
	}
}

// StatusCounts reports how many records are in each status.
type StatusCounts struct {
	Raw       map[ProcessingStatus]int `json:"raw"`
	Processed map[SyncStatus]int       `json:"processed"`
}

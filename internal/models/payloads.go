package models

// ProcessInvoicesResponse is the result returned to the caller of a processing run.
// Per-record failures are only visible through Failed and the records' stored status.
type ProcessInvoicesResponse struct {
	Status    string `json:"status"`
	RunID     string `json:"runId"`
	Found     int    `json:"found"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped"`

	// Unprocessed counts records left Processing because the run's context ended.
	Unprocessed int `json:"unprocessed"`
}

package casestore

// Status is the lifecycle state of a scraped case.
type Status string

const (
	// record written, documents not yet confirmed on disk
	StatusPending Status = "pending"
	// some documents could not be retrieved
	StatusPartial Status = "partial"
	// every linked document is confirmed present on disk
	StatusComplete Status = "complete"
	// the portal refuses to show the case, terminal by policy not failure
	StatusRestricted Status = "restricted"
)

// CaseRef is one row of a date's case index. Link stays empty when the
// portal rendered the row without an anchor; such rows are kept, not
// dropped.
type CaseRef struct {
	Number string `json:"case_num"`
	Title  string `json:"title"`
	Link   string `json:"link"`
}

// ActionEntry is one row of a case's register of actions. Once its document
// has been downloaded the entry is immutable apart from the Downloaded flag
// and timestamp.
type ActionEntry struct {
	Date         string `json:"date"`
	Proceedings  string `json:"proceedings"`
	Fee          string `json:"fee"`
	DocID        string `json:"doc_id"`
	DocFilename  string `json:"doc_filename"`
	DocURL       string `json:"doc_url"`
	Downloaded   *bool  `json:"downloaded,omitempty"`
	DownloadTime string `json:"download_time,omitempty"`
}

type CaseMetadata struct {
	Status       Status `json:"status"`
	Reason       string `json:"reason,omitempty"`
	TotalEntries int    `json:"total_entries"`
	TotalLinks   int    `json:"total_links"`
	ScrapedLinks int    `json:"scraped_links"`
	StartedAt    string `json:"started_at,omitempty"`
	CompletedAt  string `json:"completed_at,omitempty"`
	LastUpdated  string `json:"last_updated,omitempty"`
}

type CaseRecord struct {
	Metadata CaseMetadata  `json:"metadata"`
	Actions  []ActionEntry `json:"actions"`
}

// Completed reports whether the case needs no further visits. Records
// written by earlier generations of the scraper carry no status field and
// only the link-count equality, so that convention is honored too.
func Completed(meta CaseMetadata) bool {
	if meta.Status == StatusComplete || meta.Status == StatusRestricted {
		return true
	}
	return meta.ScrapedLinks == meta.TotalLinks && meta.TotalLinks > 0
}

// DaySummary aggregates one filing date. It is recomputed by scanning the
// date's case directories, never incrementally maintained, so it stays
// truthful after a crash.
type DaySummary struct {
	Date           string    `json:"date"`
	TotalCases     int       `json:"total_cases"`
	ScrapedCases   int       `json:"scraped_cases"`
	CompletedCases int       `json:"completed_cases"`
	FullyCompleted bool      `json:"fully_completed"`
	Cases          []CaseRef `json:"cases"`
	LastUpdated    string    `json:"last_updated"`
}

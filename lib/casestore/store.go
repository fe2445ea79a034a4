package casestore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"sfcourt-backend/lib/timezone"
)

const (
	RegisterFilename   = "register_of_actions.json"
	DaySummaryFilename = "day_summary.json"
)

// Store owns every read and write of progress state under the data root:
//
//	<root>/<YYYY-MM-DD>/day_summary.json
//	<root>/<YYYY-MM-DD>/<case_number>/register_of_actions.json
//	<root>/<YYYY-MM-DD>/<case_number>/<action_date>_<doc_id>.pdf
//
// Record updates are whole-file rewrites under a single lock; concurrent
// document fetches for one case all funnel their status updates through
// UpdateActionDownload.
type Store struct {
	root string
	mu   sync.Mutex
}

func New(root string) *Store {
	return &Store{root: root}
}

func (s *Store) Root() string { return s.root }

func (s *Store) DayDir(date string) string {
	return filepath.Join(s.root, date)
}

func (s *Store) CaseDir(date, caseNumber string) string {
	return filepath.Join(s.root, date, caseNumber)
}

func (s *Store) ArtifactPath(date, caseNumber, filename string) string {
	return filepath.Join(s.CaseDir(date, caseNumber), filename)
}

func (s *Store) registerPath(date, caseNumber string) string {
	return filepath.Join(s.CaseDir(date, caseNumber), RegisterFilename)
}

func writeJSON(path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0644)
}

// ReadCaseRecord loads a case's record. A missing or unreadable file is
// reported as absent so the caller re-scrapes instead of crashing on a
// half-written record.
func (s *Store) ReadCaseRecord(date, caseNumber string) (CaseRecord, bool) {
	raw, err := os.ReadFile(s.registerPath(date, caseNumber))
	if err != nil {
		return CaseRecord{}, false
	}
	var rec CaseRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return CaseRecord{}, false
	}
	return rec, true
}

func (s *Store) WriteCaseRecord(date, caseNumber string, rec CaseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.CaseDir(date, caseNumber), 0755); err != nil {
		return err
	}
	return writeJSON(s.registerPath(date, caseNumber), rec)
}

// WriteRestricted records a case the portal refuses to serve. This is a
// terminal success state.
func (s *Store) WriteRestricted(date, caseNumber, reason string) error {
	return s.WriteCaseRecord(date, caseNumber, CaseRecord{
		Metadata: CaseMetadata{
			Status: StatusRestricted,
			Reason: reason,
		},
	})
}

// UpdateActionDownload flips one action's download flag after a fetch
// attempt resolved, and recounts scraped_links from the flags. The
// read-modify-write runs under the store lock since multiple in-flight
// fetches of the same case land here concurrently.
func (s *Store) UpdateActionDownload(date, caseNumber string, actionIndex int, downloaded bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.registerPath(date, caseNumber)
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var rec CaseRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return err
	}

	if actionIndex < 0 || actionIndex >= len(rec.Actions) {
		return fmt.Errorf("action index %d out of range for case %s", actionIndex, caseNumber)
	}
	flag := downloaded
	rec.Actions[actionIndex].Downloaded = &flag
	rec.Actions[actionIndex].DownloadTime = timezone.Now().Format(time.RFC3339)

	count := 0
	for _, a := range rec.Actions {
		if a.Downloaded != nil && *a.Downloaded {
			count++
		}
	}
	rec.Metadata.ScrapedLinks = count
	rec.Metadata.LastUpdated = timezone.Now().Format(time.RFC3339)

	return writeJSON(path, rec)
}

// CountArtifacts reports how many of the record's linked documents exist on
// disk. File presence, not fetch return values, is the authority: a prior
// run's artifacts count too.
func (s *Store) CountArtifacts(date, caseNumber string, actions []ActionEntry) int {
	count := 0
	for _, a := range actions {
		if a.DocFilename == "" {
			continue
		}
		if _, err := os.Stat(s.ArtifactPath(date, caseNumber, a.DocFilename)); err == nil {
			count++
		}
	}
	return count
}

func (s *Store) ReadDaySummary(date string) (DaySummary, bool) {
	raw, err := os.ReadFile(filepath.Join(s.DayDir(date), DaySummaryFilename))
	if err != nil {
		return DaySummary{}, false
	}
	var summary DaySummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return DaySummary{}, false
	}
	return summary, true
}

// RefreshDaySummary recomputes and persists the summary for a date by
// scanning its case directories. totalCases and cases may be nil to carry
// the previously recorded values forward.
func (s *Store) RefreshDaySummary(date string, totalCases *int, cases []CaseRef) (DaySummary, error) {
	dayDir := s.DayDir(date)
	if err := os.MkdirAll(dayDir, 0755); err != nil {
		return DaySummary{}, err
	}

	prev, _ := s.ReadDaySummary(date)
	total := prev.TotalCases
	if totalCases != nil {
		total = *totalCases
	}
	if cases == nil {
		cases = prev.Cases
	}

	scraped := 0
	completed := 0
	entries, err := os.ReadDir(dayDir)
	if err != nil {
		return DaySummary{}, err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		rec, ok := s.ReadCaseRecord(date, entry.Name())
		if !ok {
			continue
		}
		scraped++
		if Completed(rec.Metadata) {
			completed++
		}
	}

	summary := DaySummary{
		Date:           date,
		TotalCases:     total,
		ScrapedCases:   scraped,
		CompletedCases: completed,
		FullyCompleted: total > 0 && completed >= total,
		Cases:          cases,
		LastUpdated:    timezone.Now().Format(time.RFC3339),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeJSON(filepath.Join(dayDir, DaySummaryFilename), summary); err != nil {
		return DaySummary{}, err
	}
	return summary, nil
}

// Dates lists the date directories present under the data root in ascending
// order.
func (s *Store) Dates() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var dates []string
	for _, entry := range entries {
		if entry.IsDir() {
			dates = append(dates, entry.Name())
		}
	}
	return dates, nil
}

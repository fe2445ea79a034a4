// Package sfcourt speaks the San Francisco Superior Court case-information
// portal's dialect: its DOM selectors, its URL schemes, its anti-bot
// interstitial and its document links.
package sfcourt

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const (
	// portal entry page, behind the anti-bot challenge
	EntryURL = "https://webapps.sftc.org/ci/CaseInfo.dll"
	baseURL  = "https://webapps.sftc.org/ci/"

	// present in a tab's URL once a human has cleared the challenge and
	// the portal has issued an authenticated session
	SessionMarker = "SessionID="
)

// selectors of the portal's search and results UI
const (
	SelNewFilingsTab = "#ui-id-3"
	SelFilingDate    = "#FilingDate"
	SelSearchButton  = `input[type="submit"][value="Search"]`
	SelResultsCount  = "#resultsCount"
	SelLengthSelect  = `select[name="example_length"]`
	SelTableInfo     = "#example_info"
	selResultRows    = "#example tbody tr"

	// option value that disables results pagination
	ShowAllValue = "-1"
)

const (
	NoResultsMarker  = "No cases found"
	RestrictedReason = "CCP 1161.2"
)

// LooksLikeChallenge reports whether the page is the anti-bot interstitial
// rather than portal content.
func LooksLikeChallenge(title, content string) bool {
	return strings.Contains(title, "Just a moment") ||
		strings.Contains(title, "Cloudflare") ||
		strings.Contains(content, "challenge-platform")
}

// IsRestricted reports whether the portal refuses to show the case by
// policy.
func IsRestricted(content string) bool {
	return strings.Contains(content, "Per CCP 1161.2") ||
		strings.Contains(content, "Case Is Not Available For Viewing")
}

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9]`)

// NormalizeCaseNumber strips the display punctuation out of a case number
// ("CGC-15-276378" -> "CGC15276378") so it can double as a directory name.
func NormalizeCaseNumber(raw string) string {
	return nonAlphanumeric.ReplaceAllString(raw, "")
}

// AbsoluteLink resolves a detail link scraped out of the results table
// against the portal base.
func AbsoluteLink(link string) string {
	if strings.HasPrefix(link, "http") {
		return link
	}
	return baseURL + link
}

// CaseNumberFromLink pulls the case number out of a detail link's CaseNum
// query parameter, falling back to the number read from the index row.
func CaseNumberFromLink(link, fallback string) string {
	u, err := url.Parse(link)
	if err != nil {
		return fallback
	}
	num := u.Query().Get("CaseNum")
	if num == "" {
		return fallback
	}
	return NormalizeCaseNumber(num)
}

// document ids hide in a nested, url-encoded query parameter:
// ...&URL=...%26DocID%3D08272316%26...
var docIDPattern = regexp.MustCompile(`DocID%3D(\d+)`)

func DocIDFromURL(docURL string) string {
	groups := docIDPattern.FindStringSubmatch(docURL)
	if len(groups) < 2 {
		return "Unknown"
	}
	return groups[1]
}

// DocumentFilename derives the deterministic artifact name for an action
// row's document. Path separators in the scraped action date would splinter
// the case directory, so they are flattened.
func DocumentFilename(actionDate, docID string) string {
	date := strings.ReplaceAll(strings.TrimSpace(actionDate), "/", "-")
	return fmt.Sprintf("%s_%s.pdf", date, docID)
}

// SessionIDFromURL extracts the portal session id from an authenticated
// tab's URL, for operator logging only.
func SessionIDFromURL(tabURL string) string {
	u, err := url.Parse(tabURL)
	if err != nil {
		return "Unknown"
	}
	id := u.Query().Get("SessionID")
	if id == "" {
		return "Unknown"
	}
	return id
}

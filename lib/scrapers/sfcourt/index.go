package sfcourt

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"sfcourt-backend/lib/casestore"
	"sfcourt-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// ExtractCaseIndex reads the ordered list of cases filed on the searched
// date out of the results table. A row whose first column carries no anchor
// is kept with an empty link and reported, never dropped.
func ExtractCaseIndex(doc *goquery.Document) []casestore.CaseRef {
	var refs []casestore.CaseRef

	doc.Find(selResultRows).Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}

		first := cells.Eq(0)
		number := NormalizeCaseNumber(htmlutil.CellText(first))
		link := htmlutil.Href(first)
		if link == "" {
			slog.Warn("case row has no detail link", "case", number)
		}

		refs = append(refs, casestore.CaseRef{
			Number: number,
			Title:  htmlutil.CellText(cells.Eq(1)),
			Link:   link,
		})
	})

	return refs
}

var entryTotalPattern = regexp.MustCompile(`of\s+([\d,]+)\s+entries`)

// ReportedEntryTotal parses the portal's "Showing 1 to N of M entries"
// indicator. The value is diagnostic only; a mismatch against the extracted
// row count is logged, not fatal.
func ReportedEntryTotal(doc *goquery.Document) (int, bool) {
	text := doc.Find(SelTableInfo).Text()
	groups := entryTotalPattern.FindStringSubmatch(text)
	if len(groups) < 2 {
		return 0, false
	}
	n, err := strconv.Atoi(strings.ReplaceAll(groups[1], ",", ""))
	if err != nil {
		return 0, false
	}
	return n, true
}

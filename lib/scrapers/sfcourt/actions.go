package sfcourt

import (
	"sfcourt-backend/lib/casestore"
	"sfcourt-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// DownloadTask is one document to retrieve for a case, tied back to the
// action row it belongs to so download progress can be recorded
// per-document.
type DownloadTask struct {
	ActionIndex int
	URL         string
	Filename    string
}

// RegisterExtract is everything pulled out of a rendered register of
// actions table.
type RegisterExtract struct {
	Actions    []casestore.ActionEntry
	Downloads  []DownloadTask
	TotalLinks int
}

// ExtractRegister reads every action row: filing date, proceedings text,
// fee, and, for rows that link a document, the derived document id,
// deterministic filename and download task.
func ExtractRegister(doc *goquery.Document) RegisterExtract {
	var out RegisterExtract

	doc.Find(selResultRows).Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 4 {
			return
		}

		// index of the entry about to be appended, what download results
		// will be recorded against
		i := len(out.Actions)

		entry := casestore.ActionEntry{
			Date:        htmlutil.CellText(cells.Eq(0)),
			Proceedings: htmlutil.CellText(cells.Eq(1)),
			Fee:         htmlutil.CellText(cells.Eq(3)),
		}

		docCell := cells.Eq(2)
		if docCell.Find("a").Length() > 0 {
			out.TotalLinks++
			if href := htmlutil.Href(docCell); href != "" {
				entry.DocID = DocIDFromURL(href)
				entry.DocFilename = DocumentFilename(entry.Date, entry.DocID)
				entry.DocURL = href
				out.Downloads = append(out.Downloads, DownloadTask{
					ActionIndex: i,
					URL:         AbsoluteLink(href),
					Filename:    entry.DocFilename,
				})
			}
		}

		out.Actions = append(out.Actions, entry)
	})

	return out
}

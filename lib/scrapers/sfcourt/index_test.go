package sfcourt

import (
	"strings"
	"testing"

	"sfcourt-backend/lib/casestore"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const indexFixture = `
<html><body>
<div id="example_info">Showing 1 to 3 of 1,204 entries</div>
<table id="example"><tbody>
<tr>
  <td><a href="CaseInfo.dll?CaseNum=CGC15276378">CGC-15-276378</a></td>
  <td>SMITH VS JONES</td>
</tr>
<tr>
  <td>CGC-15-276379</td>
  <td>DOE  VS  ROE</td>
</tr>
<tr>
  <td><a href="CaseInfo.dll?CaseNum=CGC15276380">CGC-15-276380</a></td>
  <td>ACME CORP VS WIDGET LLC</td>
</tr>
</tbody></table>
</body></html>`

func TestExtractCaseIndex(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(indexFixture))
	require.NoError(t, err)

	got := ExtractCaseIndex(doc)
	want := []casestore.CaseRef{
		{Number: "CGC15276378", Title: "SMITH VS JONES", Link: "CaseInfo.dll?CaseNum=CGC15276378"},
		{Number: "CGC15276379", Title: "DOE VS ROE", Link: ""},
		{Number: "CGC15276380", Title: "ACME CORP VS WIDGET LLC", Link: "CaseInfo.dll?CaseNum=CGC15276380"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("index mismatch (-want +got):\n%s", diff)
	}
}

func TestReportedEntryTotal(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(indexFixture))
	require.NoError(t, err)

	total, ok := ReportedEntryTotal(doc)
	require.True(t, ok)
	require.Equal(t, 1204, total)

	empty, err := goquery.NewDocumentFromReader(strings.NewReader("<html></html>"))
	require.NoError(t, err)
	_, ok = ReportedEntryTotal(empty)
	require.False(t, ok)
}

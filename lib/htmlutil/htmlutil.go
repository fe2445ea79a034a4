package htmlutil

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

// CleanText normalizes text scraped out of a table cell: whitespace of any
// kind (newlines and tabs included) becomes a plain space so adjacent words
// stay separated, other non-printable characters are dropped, and runs of
// spaces collapse to one.
func CleanText(s string) string {
	out := strings.Builder{}
	for _, c := range s {
		switch {
		case unicode.IsSpace(c):
			out.WriteRune(' ')
		case unicode.IsPrint(c):
			out.WriteRune(c)
		}
	}
	return innerWhitespace.ReplaceAllString(strings.TrimSpace(out.String()), " ")
}

// CellText extracts normalized text content from a selection.
func CellText(sel *goquery.Selection) string {
	return CleanText(sel.Text())
}

// Href returns the href of the first anchor inside the selection, or ""
// when the selection holds no linked anchor.
func Href(sel *goquery.Selection) string {
	href, _ := sel.Find("a").First().Attr("href")
	return href
}

package htmlutil

import (
	"bytes"
	"net/url"
	"strconv"
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

// First returns the first element under sel matching selector, ok is false
// when nothing matches.
func First(sel *goquery.Selection, selector string) (*goquery.Selection, bool) {
	found := sel.Find(selector).First()
	return found, found.Length() > 0
}

// FirstText returns the full text content of the first element matching selector.
func FirstText(sel *goquery.Selection, selector string) (string, bool) {
	found, ok := First(sel, selector)
	if !ok {
		return "", false
	}
	return GetText(found.Nodes[0]), true
}

// FirstContains reports whether the first element matching selector exists
// and its text contains substr. Later matches are never consulted.
func FirstContains(sel *goquery.Selection, selector, substr string) bool {
	text, ok := FirstText(sel, selector)
	return ok && strings.Contains(text, substr)
}

// FormValues collects the name/value pairs of every input under form.
// Inputs missing either attribute are skipped, repeated names keep every value
// in document order.
func FormValues(form *goquery.Selection) url.Values {
	values := url.Values{}
	form.Find("input").Each(func(_ int, input *goquery.Selection) {
		name, hasName := input.Attr("name")
		value, hasValue := input.Attr("value")
		if !hasName || !hasValue {
			return
		}
		values.Add(name, value)
	})
	return values
}

// Digits parses the decimal digits found anywhere in s as a single integer,
// "Level 3+" yields 3 and "(1,250P)" yields 1250.
func Digits(s string) (int, error) {
	var digits strings.Builder
	for _, c := range s {
		if unicode.IsDigit(c) {
			digits.WriteRune(c)
		}
	}
	return strconv.Atoi(digits.String())
}

// Truncate cuts s to at most n runes and always appends an ellipsis.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		runes = runes[:n]
	}
	return string(runes) + "..."
}

// FollowingMatches returns every element matching selector that appears after
// anchor in document order, anchor's own descendants included.
func FollowingMatches(doc *goquery.Document, anchor *goquery.Selection, selector string) *goquery.Selection {
	if anchor.Length() == 0 {
		return doc.Find(selector)
	}
	positions := map[*html.Node]int{}
	counter := 0
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		positions[n] = counter
		counter++
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, root := range doc.Nodes {
		walk(root)
	}

	anchorPos := positions[anchor.Nodes[0]]
	return doc.Find(selector).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return positions[s.Nodes[0]] > anchorPos
	})
}

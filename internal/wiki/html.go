package wiki

import (
	"strings"

	"golang.org/x/net/html"
)

// plainText flattens an HTML fragment (Commons extmetadata) to its text content
func plainText(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return strings.TrimSpace(fragment)
	}

	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	return strings.Join(strings.Fields(extractText(doc)), " ")
}

// extractText extracts text content from a node
func extractText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}

	var buf strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		buf.WriteString(extractText(c))
		if c.Type == html.ElementNode && c.Data == "br" {
			buf.WriteString(" ")
		}
	}
	return buf.String()
}

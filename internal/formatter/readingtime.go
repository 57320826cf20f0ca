package formatter

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html"
)

// DefaultWPM is the assumed reading speed in words per minute.
const DefaultWPM = 200

// ReadingTime estimates the minutes needed to read markdown at wpm words per
// minute, rounded up. Markup is rendered away first so only visible words
// count. Empty input yields 0.
func ReadingTime(markdown string, wpm int) (int, error) {
	if wpm <= 0 {
		wpm = DefaultWPM
	}

	var buf bytes.Buffer
	md := goldmark.New(goldmark.WithRendererOptions(gmhtml.WithUnsafe()))
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return 0, fmt.Errorf("convert markdown: %w", err)
	}

	doc, err := html.Parse(&buf)
	if err != nil {
		return 0, fmt.Errorf("parse html: %w", err)
	}

	words := len(strings.Fields(textContent(doc)))
	if words == 0 {
		return 0, nil
	}
	return (words + wpm - 1) / wpm, nil
}

// textContent concatenates all text nodes below n, space separated.
func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
			return
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

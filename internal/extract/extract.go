// Package extract pulls the title and body text out of HTML documents.
package extract

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"
)

// Content is the text extracted from one HTML file.
type Content struct {
	Title string
	Body  string
}

// Parser extracts Content from a document stream.
type Parser interface {
	Parse(path string, r io.Reader) (Content, error)
}

// IsHTML reports whether path should go through the HTML extractor.
// The check is a case-sensitive substring match on ".html".
func IsHTML(path string) bool {
	return strings.Contains(path, ".html")
}

// HTMLParser is a tolerant HTML extractor. Malformed markup yields whatever
// text could be recovered; only read errors are returned.
type HTMLParser struct{}

// NewHTMLParser creates an HTMLParser.
func NewHTMLParser() *HTMLParser {
	return &HTMLParser{}
}

// skipped elements contribute no body text.
var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Template: true,
	atom.Noscript: true,
}

// headContent elements may appear inside <head>; any other start tag
// implicitly closes it.
var headContent = map[atom.Atom]bool{
	atom.Html: true, atom.Head: true, atom.Title: true, atom.Meta: true,
	atom.Link: true, atom.Base: true, atom.Style: true, atom.Script: true,
	atom.Noscript: true, atom.Template: true,
}

// block elements end the current line when opened or closed.
var block = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Br: true, atom.Caption: true, atom.Dd: true, atom.Div: true, atom.Dl: true,
	atom.Dt: true, atom.Fieldset: true, atom.Figcaption: true, atom.Figure: true,
	atom.Footer: true, atom.Form: true, atom.H1: true, atom.H2: true, atom.H3: true,
	atom.H4: true, atom.H5: true, atom.H6: true, atom.Header: true, atom.Hr: true,
	atom.Li: true, atom.Main: true, atom.Nav: true, atom.Ol: true, atom.P: true,
	atom.Pre: true, atom.Section: true, atom.Table: true, atom.Td: true, atom.Th: true,
	atom.Tr: true, atom.Ul: true, atom.Body: true, atom.Title: true,
}

// Parse implements Parser.
func (p *HTMLParser) Parse(path string, r io.Reader) (Content, error) {
	utf8Reader, err := charset.NewReader(r, "")
	if errors.Is(err, io.EOF) {
		return Content{}, nil
	}
	if err != nil {
		return Content{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var (
		e         extraction
		z         = html.NewTokenizer(utf8Reader)
		skipDepth int
		inHead    bool
		inTitle   bool
		inPre     int
		seenTitle bool
	)

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return Content{}, fmt.Errorf("failed to read %s: %w", path, err)
			}
			e.endLine()
			return Content{Title: e.title, Body: strings.Join(e.lines, "\n")}, nil

		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			selfClosing := tt == html.SelfClosingTagToken
			if inHead && !headContent[a] {
				inHead = false
			}

			switch {
			case a == atom.Head && !selfClosing:
				inHead = true
			case a == atom.Body:
				inHead = false
			case a == atom.Title && !selfClosing:
				inTitle = true
			case skipped[a] && !selfClosing:
				skipDepth++
			case a == atom.Pre && !selfClosing:
				inPre++
			}
			if block[a] {
				e.endLine()
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)

			switch {
			case a == atom.Head:
				inHead = false
			case a == atom.Title:
				if inTitle {
					seenTitle = true
				}
				inTitle = false
			case skipped[a] && skipDepth > 0:
				skipDepth--
			case a == atom.Pre && inPre > 0:
				inPre--
			}
			if block[a] {
				e.endLine()
			}

		case html.TextToken:
			text := string(z.Text())
			if inHead && skipDepth == 0 && !inTitle && strings.TrimSpace(text) != "" {
				inHead = false
			}
			switch {
			case inTitle:
				if !seenTitle {
					e.title = strings.TrimSpace(e.title + " " + collapse(text))
				}
			case skipDepth > 0, inHead:
			case inPre > 0:
				e.writePre(text)
			default:
				e.line.WriteString(text)
			}
		}
	}
}

// extraction accumulates output lines.
type extraction struct {
	title string
	lines []string
	line  strings.Builder
}

func (e *extraction) endLine() {
	if s := collapse(e.line.String()); s != "" {
		e.lines = append(e.lines, s)
	}
	e.line.Reset()
}

func (e *extraction) writePre(text string) {
	parts := strings.Split(text, "\n")
	for i, part := range parts {
		if i > 0 {
			e.endLine()
		}
		e.line.WriteString(part)
	}
}

// collapse folds runs of whitespace into single spaces and trims the ends.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var _ Parser = (*HTMLParser)(nil)

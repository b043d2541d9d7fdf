// -----------------------------------------------------------------------
// Main Content Selector
// Isolates the DOM subtree most likely to hold the article body,
// stripping portal navigation and chrome
// -----------------------------------------------------------------------

package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// MinCandidateChars is the flattened text length a priority candidate must
// reach before the fallback scan of all block containers is skipped.
const MinCandidateChars = 400

// uselessTags are removed outright before any candidate evaluation.
var uselessTags = []string{"script", "style", "noscript", "svg", "canvas"}

// chromeSelectors match portal navigation and page furniture that must never
// leak into the extracted article.
var chromeSelectors = []string{
	"header", "footer", "nav",
	"[role='navigation']", "[role='banner']", "[role='contentinfo']",
	".navbar", ".nav", ".navigation", ".header", ".footer",
	".sidebar", ".side-nav", ".toc", ".breadcrumbs",
}

// candidateSelectors are evaluated in priority order. Semantic tags first,
// then the class/id patterns ServiceNow knowledge pages are known to use.
var candidateSelectors = []string{
	"article", "main",
	"#kb_article", ".kb-article", ".kb-article-content", ".kb-view",
	".sn-kb-article", ".knowledge-article",
	"[id*='kb']", "[class*='kb']",
	"[class*='article']", "[class*='content']",
}

// Result holds the outcome of main-content selection.
type Result struct {
	Title     string
	Container *goquery.Selection
	// TextLen is the flattened text length of the chosen container.
	TextLen int
}

// SelectMainContent parses rendered HTML and returns the document title and
// the container subtree most likely to hold the article body. The container
// is never nil: when every heuristic fails the document body (or the whole
// document) is returned.
func SelectMainContent(html string) (*Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())

	removeUseless(doc)

	container, textLen := pickBestContainer(doc)

	return &Result{Title: title, Container: container, TextLen: textLen}, nil
}

// removeUseless strips script/style/vector/canvas nodes and chrome elements.
func removeUseless(doc *goquery.Document) {
	doc.Find(strings.Join(uselessTags, ", ")).Remove()
	for _, sel := range chromeSelectors {
		doc.Find(sel).Remove()
	}
}

// pickBestContainer evaluates the prioritized candidate selectors, keeping
// the match with the longest flattened text. Strictly-greater length replaces
// the current best, so equal lengths keep the earlier find (selector order,
// then document order). Candidates below MinCandidateChars trigger a fallback
// scan of every block-level container.
func pickBestContainer(doc *goquery.Document) (*goquery.Selection, int) {
	var bestNode *goquery.Selection
	bestLen := 0

	for _, sel := range candidateSelectors {
		doc.Find(sel).Each(func(_ int, node *goquery.Selection) {
			if ln := len(FlattenText(node, "\n")); ln > bestLen {
				bestLen = ln
				bestNode = node
			}
		})
	}

	if bestNode != nil && bestLen >= MinCandidateChars {
		return bestNode, bestLen
	}

	doc.Find("div, section, article, main").Each(func(_ int, node *goquery.Selection) {
		if ln := len(FlattenText(node, "\n")); ln > bestLen {
			bestLen = ln
			bestNode = node
		}
	})

	if bestNode != nil {
		return bestNode, bestLen
	}

	body := doc.Find("body")
	if body.Length() > 0 {
		return body.First(), len(FlattenText(body.First(), "\n"))
	}
	return doc.Selection, len(FlattenText(doc.Selection, "\n"))
}

// FlattenText extracts the text of a selection with per-node trimming,
// joining non-empty pieces with sep. It mirrors the separator-joined
// extraction the selection heuristics were tuned against.
func FlattenText(sel *goquery.Selection, sep string) string {
	raw := sel.Text()
	parts := strings.Fields(raw)
	if sep == " " {
		return strings.Join(parts, " ")
	}

	// Preserve line-ish structure: split on newlines, trim each line, drop
	// empties, then join with the separator.
	lines := strings.Split(raw, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, sep)
}

// CollapseWhitespace folds consecutive whitespace (including newlines) into
// single spaces and trims the result.
func CollapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

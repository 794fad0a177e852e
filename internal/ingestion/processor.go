package ingestion

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/chateval/backend/pkg/logger"
	"github.com/chateval/backend/pkg/utils"
)

const (
	minSnippetChars = 40
	maxSnippetChars = 1200
)

// Processor converts raw HTML pages into the context-vector shape the
// evaluator consumes, so a fetched page can serve as the evidence corpus.
type Processor struct{}

func NewProcessor() *Processor {
	return &Processor{}
}

// ContextFromHTML extracts text blocks from an HTML document and wraps them
// as a {data: {vector_data: [...]}} context object with the page URL as the
// citation source.
func (p *Processor) ContextFromHTML(pageURL, htmlContent string) (map[string]interface{}, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("script, style, nav, header, footer, noscript").Remove()

	docID := utils.HashString(pageURL)[:12]

	var records []interface{}
	doc.Find("p, li, h1, h2, h3, td, blockquote").Each(func(i int, sel *goquery.Selection) {
		text := normalizeWhitespace(sel.Text())
		if len(text) < minSnippetChars {
			return
		}
		if len(text) > maxSnippetChars {
			text = text[:maxSnippetChars]
		}
		records = append(records, map[string]interface{}{
			"id":         fmt.Sprintf("%s_block_%d", docID, len(records)),
			"text":       text,
			"source_url": pageURL,
		})
	})

	logger.Info("HTML context extracted",
		zap.String("url", pageURL),
		zap.Int("blocks", len(records)),
	)

	return map[string]interface{}{
		"data": map[string]interface{}{
			"vector_data": records,
		},
	}, nil
}

func normalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/huamanraj/investai-new/model"
	"golang.org/x/net/html"
)

// filingsURLPattern is the only accepted shape for a project source URL
var filingsURLPattern = regexp.MustCompile(
	`^https://[^/]+/stock-share-price/([a-z0-9-]+)/[^/]+/[^/]+/financials-annual-reports/?$`)

var (
	yearPattern    = regexp.MustCompile(`(20\d{2})(?:\s*[-–]\s*(\d{2,4}))?`)
	quarterPattern = regexp.MustCompile(`\bq[1-4]\b`)
)

// Scraper discovers and downloads PDF filings from a public filings page
type Scraper struct {
	httpClient *http.Client
}

// NewScraper creates a scraper with the given page-fetch ceiling
func NewScraper(timeout time.Duration) *Scraper {
	return &Scraper{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ValidateFilingsURL checks the source URL shape and derives the company
// display name from the slug segment
func ValidateFilingsURL(sourceURL string) (string, error) {
	match := filingsURLPattern.FindStringSubmatch(strings.TrimSpace(sourceURL))
	if match == nil {
		return "", fmt.Errorf("url does not match the filings page pattern: %s", sourceURL)
	}
	company := strings.ToUpper(strings.ReplaceAll(match[1], "-", " "))
	return company, nil
}

// ScrapeFilingsPage fetches the page and returns every PDF link found,
// classified by document type and reporting period
func (s *Scraper) ScrapeFilingsPage(ctx context.Context, pageURL string) ([]PDFInfo, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; filings-ingester/1.0)")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch filings page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("filings page returned status %d", resp.StatusCode)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page url: %w", err)
	}

	return parsePDFLinks(resp.Body, base)
}

// parsePDFLinks walks the document tree collecting anchors that point at PDFs
func parsePDFLinks(r io.Reader, base *url.URL) ([]PDFInfo, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse filings page html: %w", err)
	}

	var results []PDFInfo
	seen := make(map[string]bool)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			var href string
			for _, attr := range n.Attr {
				if attr.Key == "href" {
					href = attr.Val
					break
				}
			}
			if href != "" && strings.HasSuffix(strings.ToLower(strings.Split(href, "?")[0]), ".pdf") {
				resolved, err := base.Parse(href)
				if err == nil && !seen[resolved.String()] {
					seen[resolved.String()] = true
					title := strings.TrimSpace(nodeText(n))
					docType, period := classifyFiling(title, resolved.String())
					results = append(results, PDFInfo{
						SourceURL: resolved.String(),
						Filename:  path.Base(resolved.Path),
						Title:     title,
						DocType:   docType,
						Period:    period,
					})
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return results, nil
}

// nodeText concatenates the text content under a node
func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(nodeText(c))
	}
	return sb.String()
}

// classifyFiling derives the document type and reporting period from the
// link text, falling back to the URL when the text is empty
func classifyFiling(title, pdfURL string) (model.DocumentType, string) {
	text := strings.ToLower(title)
	if text == "" {
		text = strings.ToLower(pdfURL)
	}

	period := ""
	if m := yearPattern.FindStringSubmatch(text); m != nil {
		period = m[1]
		if m[2] != "" {
			period = m[1] + "-" + m[2]
		}
	}

	switch {
	case strings.Contains(text, "annual"):
		return model.DocumentTypeAnnualReport, period
	case strings.Contains(text, "quarter") || quarterPattern.MatchString(text):
		return model.DocumentTypeQuarterlyReport, period
	case strings.Contains(text, "financial") || strings.Contains(text, "results"):
		return model.DocumentTypeFinancials, period
	default:
		return model.DocumentTypeOther, period
	}
}

// DownloadPDF fetches one PDF and returns its bytes
func (s *Scraper) DownloadPDF(ctx context.Context, pdfURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pdfURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; filings-ingester/1.0)")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download pdf: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pdf download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read pdf body: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("pdf download returned empty body")
	}
	return data, nil
}

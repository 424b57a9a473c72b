package research

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
)

// Document is extracted source material before chunking.
type Document struct {
	Title  string
	Text   string
	Source string
}

// Extractor pulls readable text from URLs and PDF files.
type Extractor struct {
	httpClient *http.Client
	userAgent  string
	maxSizeMB  int
}

func NewExtractor(userAgent string, maxSizeMB int) *Extractor {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	return &Extractor{
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				return nil
			},
		},
		userAgent: userAgent,
		maxSizeMB: maxSizeMB,
	}
}

// FetchURL downloads a page and extracts its readable article text. PDF
// responses are routed to the PDF extractor.
func (e *Extractor) FetchURL(ctx context.Context, urlString string) (*Document, error) {
	parsedURL, err := url.Parse(urlString)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "GET", urlString, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	maxBytes := int64(e.maxSizeMB * 1024 * 1024)
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes))
	if err != nil {
		return nil, err
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "application/pdf") {
		log.Printf("[Research] Detected PDF at %s, extracting text...", urlString)
		return e.ExtractPDF(data, urlString)
	}

	article, err := readability.FromReader(bytes.NewReader(data), parsedURL)
	if err != nil {
		return nil, fmt.Errorf("readability extraction failed: %w", err)
	}

	title := article.Title
	if title == "" {
		title = pageTitle(data)
	}

	return &Document{
		Title:  title,
		Text:   strings.TrimSpace(article.TextContent),
		Source: urlString,
	}, nil
}

// ExtractPDF pulls text from raw PDF bytes.
func (e *Extractor) ExtractPDF(data []byte, source string) (*Document, error) {
	reader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	numPages, err := reader.GetNumPages()
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF page count: %w", err)
	}

	var builder strings.Builder
	for i := 1; i <= numPages; i++ {
		page, err := reader.GetPage(i)
		if err != nil {
			log.Printf("[Research] Skipping PDF page %d: %v", i, err)
			continue
		}
		ex, err := extractor.New(page)
		if err != nil {
			log.Printf("[Research] Skipping PDF page %d: %v", i, err)
			continue
		}
		text, err := ex.ExtractText()
		if err != nil {
			log.Printf("[Research] Skipping PDF page %d: %v", i, err)
			continue
		}
		builder.WriteString(text)
		builder.WriteString("\n")
	}

	return &Document{
		Title:  source,
		Text:   strings.TrimSpace(builder.String()),
		Source: source,
	}, nil
}

// pageTitle is the goquery fallback when readability finds no title.
func pageTitle(html []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return ""
	}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	if desc, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok {
		return strings.TrimSpace(desc)
	}
	return ""
}

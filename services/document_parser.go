package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"qa-agent/internal/logger"
	"qa-agent/internal/rag"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"
)

// DocumentParser extracts plain text from uploaded documentation and
// turns it into index-ready chunks.
type DocumentParser struct {
	chunkSize    int
	chunkOverlap int
}

// NewDocumentParser creates a parser with the given chunking parameters
func NewDocumentParser(chunkSize, chunkOverlap int) *DocumentParser {
	return &DocumentParser{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// ParseFile extracts text from a single file and chunks it. The chunk
// source is the file's base name. Unknown extensions are treated as
// plain text.
func (p *DocumentParser) ParseFile(filePath string) ([]rag.Chunk, error) {
	ext := strings.ToLower(filepath.Ext(filePath))

	var text string
	var err error

	switch ext {
	case ".md", ".txt":
		text, err = p.parseTextFile(filePath)
	case ".json":
		text, err = p.parseJSONFile(filePath)
	case ".html":
		text, err = p.parseHTMLFile(filePath)
	case ".pdf":
		text, err = p.parsePDFFile(filePath)
	default:
		logger.Warn("Unsupported file type, treating as text", "file", filePath, "ext", ext)
		text, err = p.parseTextFile(filePath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(filePath), err)
	}

	chunks, err := rag.ChunkText(text, p.chunkSize, p.chunkOverlap, filepath.Base(filePath))
	if err != nil {
		return nil, err
	}

	logger.Debug("Parsed document", "file", filepath.Base(filePath), "chars", len(text), "chunks", len(chunks))
	return chunks, nil
}

// ParseFiles parses multiple files. A file that fails to parse is
// skipped and logged; the remaining files still contribute chunks.
func (p *DocumentParser) ParseFiles(filePaths []string) []rag.Chunk {
	var all []rag.Chunk

	for _, filePath := range filePaths {
		chunks, err := p.ParseFile(filePath)
		if err != nil {
			logger.Error("Failed to parse file", "file", filePath, "error", err)
			continue
		}
		all = append(all, chunks...)
	}

	return all
}

func (p *DocumentParser) parseTextFile(filePath string) (string, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// parseJSONFile re-indents JSON so field names and values survive
// chunking in readable form.
func (p *DocumentParser) parseJSONFile(filePath string) (string, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, content, "", "  "); err != nil {
		return "", fmt.Errorf("invalid JSON: %w", err)
	}
	return buf.String(), nil
}

// parseHTMLFile strips script and style elements but keeps the markup
// itself. Element IDs and classes matter for UI test generation.
func (p *DocumentParser) parseHTMLFile(filePath string) (string, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return "", err
	}

	doc.Find("script, style").Remove()

	html, err := doc.Html()
	if err != nil {
		return "", err
	}
	return html, nil
}

func (p *DocumentParser) parsePDFFile(filePath string) (string, error) {
	f, reader, err := pdf.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var textBuilder strings.Builder
	pages := reader.NumPage()

	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			logger.Warn("Failed to extract PDF page", "file", filepath.Base(filePath), "page", i, "error", err)
			continue
		}

		fmt.Fprintf(&textBuilder, "\n--- Page %d ---\n", i)
		textBuilder.WriteString(text)
	}

	extracted := textBuilder.String()
	if strings.TrimSpace(extracted) == "" {
		return "", fmt.Errorf("no text extracted from PDF")
	}
	return extracted, nil
}

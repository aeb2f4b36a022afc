package ingestion

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	pdf "github.com/ledongthuc/pdf"
)

// DocumentParser turns a raw file payload into plain text.
type DocumentParser interface {
	Parse(ctx context.Context, data []byte) (string, error)
}

func parserFor(format DocumentFormat) (DocumentParser, bool) {
	switch format {
	case FormatText, FormatMarkdown:
		return textParser{}, true
	case FormatPDF:
		return pdfParser{}, true
	default:
		return nil, false
	}
}

type textParser struct{}

func (textParser) Parse(_ context.Context, data []byte) (string, error) {
	return normalizePlainText(string(bytes.ToValidUTF8(data, []byte("�")))), nil
}

type pdfParser struct{}

func (pdfParser) Parse(_ context.Context, data []byte) (string, error) {
	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	plain, err := doc.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}

	buf := &bytes.Buffer{}
	if _, err := io.Copy(buf, plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	return normalizePlainText(buf.String()), nil
}

func normalizePlainText(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}

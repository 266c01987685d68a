package services

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/Petrobere4/rag-docs-demo/utils"
)

// Upload is the raw uploaded file handed to the ingestion pipeline.
type Upload struct {
	FileName string
	MIMEType string
	Data     []byte
}

var pdfMagic = []byte("%PDF-")

// looksLikePDF classifies a file as PDF by declared MIME type, file name
// extension, or a 5-byte magic-number sniff of the raw bytes.
func looksLikePDF(up Upload) bool {
	name := strings.ToLower(up.FileName)
	return up.MIMEType == "application/pdf" ||
		strings.HasSuffix(name, ".pdf") ||
		(len(up.Data) >= len(pdfMagic) && bytes.Equal(up.Data[:len(pdfMagic)], pdfMagic))
}

// looksLikeText classifies a file as plain text or markdown.
func looksLikeText(up Upload) bool {
	name := strings.ToLower(up.FileName)
	return up.MIMEType == "text/plain" ||
		up.MIMEType == "text/markdown" ||
		strings.HasSuffix(name, ".txt") ||
		strings.HasSuffix(name, ".md")
}

// ExtractUploadText classifies the upload and returns its plain text.
// Unsupported types, unreadable PDFs and empty files come back as typed
// extraction failures with a remediation hint.
func ExtractUploadText(up Upload) (string, *utils.AppError) {
	switch {
	case looksLikePDF(up):
		return extractPDFText(up.Data)
	case looksLikeText(up):
		if !utf8.Valid(up.Data) {
			return "", utils.E(utils.KindExtraction, "invalid_encoding",
				"File is not valid UTF-8 text.")
		}
		text := strings.TrimSpace(string(up.Data))
		if text == "" {
			return "", utils.E(utils.KindExtraction, "empty_file", "Empty file")
		}
		return text, nil
	default:
		return "", utils.E(utils.KindExtraction, "unsupported_file_type",
			"Only .txt, .md, or .pdf files are allowed.")
	}
}

// extractPDFText pulls plain text out of a PDF page by page.
func extractPDFText(data []byte) (text string, appErr *utils.AppError) {
	// The pdf package panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			appErr = utils.E(utils.KindExtraction, "pdf_unreadable",
				fmt.Sprintf("Failed to parse PDF file: %v", r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", utils.Wrap(utils.KindExtraction, "pdf_unreadable",
			"Failed to parse PDF file.", err)
	}

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
			// Partial extraction is acceptable; skip unreadable pages.
			continue
		}
		if textBuilder.Len() > 0 {
			textBuilder.WriteString("\n\n")
		}
		textBuilder.WriteString(text)
	}

	extracted := strings.TrimSpace(textBuilder.String())
	if extracted == "" {
		return "", utils.E(utils.KindExtraction, "no_extractable_text",
			fmt.Sprintf("PDF has no extractable text (maybe scanned images, %d pages). Please upload a text-based PDF or use OCR.", pages))
	}
	return extracted, nil
}

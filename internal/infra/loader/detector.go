package loader

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-enry/go-enry/v2"
)

// ContentTypeDetector は文書ファイルの種別（MIMEタイプ）を判定する。
type ContentTypeDetector struct{}

// NewContentTypeDetector は ContentTypeDetector を生成する。
func NewContentTypeDetector() *ContentTypeDetector {
	return &ContentTypeDetector{}
}

// DetectContentType はファイルパスと内容からMIMEタイプを判定する。
func (d *ContentTypeDetector) DetectContentType(path string, content []byte) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".text":
		return "text/plain"
	case ".md", ".markdown":
		return "text/markdown"
	}

	language := enry.GetLanguage(filepath.Base(path), content)
	if mime, ok := languageMimeTypes[language]; ok {
		return mime
	}

	if len(content) > 0 {
		detected := http.DetectContentType(content)
		if idx := strings.Index(detected, ";"); idx != -1 {
			detected = detected[:idx]
		}
		return strings.TrimSpace(detected)
	}

	return "text/plain"
}

// IsBinary は内容がバイナリかどうかを判定する。
func (d *ContentTypeDetector) IsBinary(content []byte) bool {
	return enry.IsBinary(content)
}

// IsText はMIMEタイプがインデックス対象のテキストかどうかを判定する。
func IsText(mime string) bool {
	if strings.HasPrefix(mime, "text/") {
		return true
	}
	switch mime {
	case "application/json", "application/xml":
		return true
	}
	return false
}

var languageMimeTypes = map[string]string{
	"Markdown":         "text/markdown",
	"reStructuredText": "text/x-rst",
	"AsciiDoc":         "text/asciidoc",
	"Text":             "text/plain",
	"HTML":             "text/html",
	"JSON":             "application/json",
	"YAML":             "text/x-yaml",
	"XML":              "text/xml",
	"CSV":              "text/csv",
	"TSV":              "text/tab-separated-values",
}

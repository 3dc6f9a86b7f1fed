package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/jinford/moodrag/internal/core/indexing"
)

// ErrUnsupportedContent はテキストとして扱えないファイルのエラー
var ErrUnsupportedContent = errors.New("unsupported content")

// Loader はファイルシステムから文書を読み込む
type Loader struct {
	detector *ContentTypeDetector
	logger   *slog.Logger
}

// LoaderOption は Loader のオプション設定
type LoaderOption func(*Loader)

// WithLoaderLogger は Loader にロガーを設定する
func WithLoaderLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader は新しい Loader を作成する
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		detector: NewContentTypeDetector(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	return l
}

// Load はパスがディレクトリなら LoadDir、ファイルなら LoadFile を呼び出す
func (l *Loader) Load(path string) ([]indexing.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return l.LoadDir(path)
	}
	doc, err := l.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return []indexing.Document{doc}, nil
}

// LoadFile は単一のテキストファイルを文書として読み込む
func (l *Loader) LoadFile(path string) (indexing.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return indexing.Document{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if l.detector.IsBinary(content) || !utf8.Valid(content) {
		return indexing.Document{}, fmt.Errorf("%w: %s is binary", ErrUnsupportedContent, path)
	}

	contentType := l.detector.DetectContentType(path, content)
	if !IsText(contentType) {
		return indexing.Document{}, fmt.Errorf("%w: %s (%s)", ErrUnsupportedContent, path, contentType)
	}

	return indexing.NewDocument(filepath.ToSlash(path), string(content), contentType), nil
}

// LoadDir はディレクトリ配下のテキストファイルをパス順に読み込む
// 除外パターンに一致するファイルとテキストでないファイルはスキップする
func (l *Loader) LoadDir(dir string) ([]indexing.Document, error) {
	filter, err := NewIgnoreFilter(dir)
	if err != nil {
		return nil, err
	}

	var docs []indexing.Document
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		if filter.ShouldIgnore(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		doc, err := l.LoadFile(path)
		if err != nil {
			if errors.Is(err, ErrUnsupportedContent) {
				l.logger.Debug("skipping non-text file", "path", rel)
				return nil
			}
			return err
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}

	l.logger.Info("documents loaded", "dir", dir, "documents", len(docs))

	return docs, nil
}

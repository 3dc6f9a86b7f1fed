package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// ignoreFiles はディレクトリ直下から読み込む除外パターンファイル
var ignoreFiles = []string{".gitignore", ".ragignore"}

// IgnoreFilter は .gitignore と .ragignore のパターンマッチングを提供する
type IgnoreFilter struct {
	patterns *gitignore.GitIgnore
}

// NewIgnoreFilter は dir 直下の除外パターンファイルとデフォルトパターンから IgnoreFilter を作成する
func NewIgnoreFilter(dir string) (*IgnoreFilter, error) {
	var patterns []string

	for _, name := range ignoreFiles {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		lines, err := readIgnoreFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		patterns = append(patterns, lines...)
	}

	patterns = append(patterns, defaultIgnorePatterns...)

	return &IgnoreFilter{
		patterns: gitignore.CompileIgnoreLines(patterns...),
	}, nil
}

// ShouldIgnore はパス（ディレクトリからの相対パス）が除外対象かどうかを判定する
func (f *IgnoreFilter) ShouldIgnore(path string) bool {
	if f == nil || f.patterns == nil {
		return false
	}
	return f.patterns.MatchesPath(filepath.ToSlash(path))
}

func readIgnoreFile(path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var patterns []string
	for _, line := range strings.Split(strings.ReplaceAll(string(content), "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns, nil
}

var defaultIgnorePatterns = []string{
	".git",
	".gitignore",
	".ragignore",
	"node_modules",
	"vendor",
	".vscode",
	".idea",
	".DS_Store",
	"*.swp",
	"*~",
	"*.log",
	"*.tmp",
	".env",
	".env.*",
	"*.pdf",
	"*.zip",
	"*.tar",
	"*.gz",
	"*.png",
	"*.jpg",
	"*.jpeg",
	"*.gif",
	"*.mp3",
	"*.mp4",
	"*.wav",
	"*.db",
	"*.sqlite",
	"__pycache__",
}

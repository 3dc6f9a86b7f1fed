package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jinford/moodrag/internal/infra/loader"
)

// DefaultDebounce は変更イベントをまとめる待機時間
const DefaultDebounce = 500 * time.Millisecond

// Watcher は文書のパス（ファイルまたはディレクトリ）を監視し、変更が落ち着いた時点で通知する
type Watcher struct {
	path     string
	debounce time.Duration
	logger   *slog.Logger
}

// Option は Watcher のオプション設定
type Option func(*Watcher)

// WithDebounce は変更イベントをまとめる待機時間を設定する
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithLogger は Watcher にロガーを設定する
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// New は新しい Watcher を作成する
func New(path string, opts ...Option) *Watcher {
	w := &Watcher{
		path:     filepath.Clean(path),
		debounce: DefaultDebounce,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	return w
}

// Run は ctx がキャンセルされるまで監視を続け、変更のたびに onChange を呼び出す
// onChange は監視用ゴルーチンから逐次呼び出される
// ディレクトリの場合は除外パターンに一致しないサブディレクトリも再帰的に監視する
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context)) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fsw.Close()

	info, err := os.Stat(w.path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", w.path, err)
	}
	isDir := info.IsDir()

	var filter *loader.IgnoreFilter
	if isDir {
		filter, err = loader.NewIgnoreFilter(w.path)
		if err != nil {
			return err
		}
		if err := w.addTree(fsw, w.path, filter); err != nil {
			return err
		}
	} else {
		// 単一ファイルはエディタの置き換え保存にも追従できるよう親ディレクトリを監視する
		if err := fsw.Add(filepath.Dir(w.path)); err != nil {
			return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
		}
	}

	w.logger.Info("watching documents", "path", w.path)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event, isDir, filter) {
				continue
			}
			if isDir && event.Has(fsnotify.Create) {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					if err := w.addTree(fsw, event.Name, filter); err != nil {
						w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
					}
				}
			}
			w.logger.Debug("document changed", "path", event.Name, "op", event.Op.String())
			timer.Reset(w.debounce)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		case <-timer.C:
			onChange(ctx)
		}
	}
}

// addTree は root 以下の除外対象でないディレクトリをすべて監視対象に加える
func (w *Watcher) addTree(fsw *fsnotify.Watcher, root string, filter *loader.IgnoreFilter) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.IsDir() {
			return nil
		}
		if w.ignored(path, filter) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

// ignored は監視ルートからの相対パスが除外パターンに一致するかを返す
func (w *Watcher) ignored(path string, filter *loader.IgnoreFilter) bool {
	rel, err := filepath.Rel(w.path, path)
	if err != nil || rel == "." {
		return false
	}
	return filter.ShouldIgnore(rel)
}

func (w *Watcher) relevant(event fsnotify.Event, dir bool, filter *loader.IgnoreFilter) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	if dir {
		return !w.ignored(event.Name, filter)
	}
	return filepath.Clean(event.Name) == w.path
}

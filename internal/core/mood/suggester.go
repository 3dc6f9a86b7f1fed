package mood

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Catalog は映画カタログの検索インターフェース
type Catalog interface {
	SearchByGenre(ctx context.Context, genreID int) ([]Movie, error)
}

// blockedWords はおすすめから除外する語（タイトルと概要を小文字化して部分一致）
var blockedWords = []string{"porn", "pornhub", "sex", "nude", "erotic", "xxx", "strip", "adult"}

// IsSuitable は作品がおすすめに適しているかを判定する
func IsSuitable(movie Movie) bool {
	combined := strings.ToLower(movie.Title + " " + movie.Description)
	for _, word := range blockedWords {
		if strings.Contains(combined, word) {
			return false
		}
	}
	return true
}

// Suggester は気分に応じた映画のおすすめを生成する
type Suggester struct {
	catalog Catalog
	mapping *Mapping
	logger  *slog.Logger
}

// SuggesterOption は Suggester のオプション設定
type SuggesterOption func(*Suggester)

// WithSuggesterLogger は Suggester にロガーを設定する
func WithSuggesterLogger(logger *slog.Logger) SuggesterOption {
	return func(s *Suggester) {
		s.logger = logger
	}
}

// WithMapping は気分とジャンルの対応表を差し替える
func WithMapping(mapping *Mapping) SuggesterOption {
	return func(s *Suggester) {
		s.mapping = mapping
	}
}

// NewSuggester は新しい Suggester を作成する
func NewSuggester(catalog Catalog, opts ...SuggesterOption) *Suggester {
	s := &Suggester{
		catalog: catalog,
		mapping: DefaultMapping(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.mapping == nil {
		s.mapping = DefaultMapping()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Suggest は気分に対応するジャンルごとのおすすめ作品を対応表の順で返す
// 未知の気分は空の結果、カタログのエラーは最初の時点で中断する
func (s *Suggester) Suggest(ctx context.Context, mood Mood) ([]GenreSuggestion, error) {
	genreIDs := s.mapping.GenresFor(mood)
	suggestions := make([]GenreSuggestion, 0, len(genreIDs))

	for _, genreID := range genreIDs {
		genre := s.mapping.GenreName(genreID)

		movies, err := s.catalog.SearchByGenre(ctx, genreID)
		if err != nil {
			return nil, fmt.Errorf("failed to search genre %s (%d): %w", genre, genreID, err)
		}

		suitable := make([]Movie, 0, len(movies))
		for _, movie := range movies {
			if IsSuitable(movie) {
				suitable = append(suitable, movie)
			}
		}

		s.logger.Debug("genre searched",
			"genre", genre,
			"movies", len(movies),
			"suitable", len(suitable),
		)

		if len(suitable) == 0 {
			continue
		}
		suggestions = append(suggestions, GenreSuggestion{
			GenreID: genreID,
			Genre:   genre,
			Movies:  suitable,
		})
	}

	s.logger.Info("suggestions generated",
		"mood", string(mood),
		"genres", len(suggestions),
	)

	return suggestions, nil
}

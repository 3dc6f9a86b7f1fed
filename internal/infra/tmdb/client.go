package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jinford/moodrag/internal/core/mood"
)

const defaultTimeout = 30 * time.Second

// Config はTMDB APIの接続設定
type Config struct {
	BaseURL      string // 例: https://api.themoviedb.org/3
	ImageBaseURL string // poster_path の前に付与するURL
	MovieURL     string // 作品IDの前に付与するURL
	APIKey       string
}

// Client はTMDBのdiscover APIで映画を検索するクライアント
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption は Client のオプション設定
type ClientOption func(*Client)

// WithHTTPClient は利用する http.Client を差し替える
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger は Client にロガーを設定する
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient は新しいTMDBクライアントを作成する
func NewClient(cfg Config, opts ...ClientOption) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("tmdb base url is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("tmdb api key is required")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

type discoverResponse struct {
	Results []struct {
		ID          int64  `json:"id"`
		Title       string `json:"title"`
		Overview    string `json:"overview"`
		ReleaseDate string `json:"release_date"`
		PosterPath  string `json:"poster_path"`
	} `json:"results"`
}

// SearchByGenre はジャンルIDに該当するPG-13以下の映画を検索する
func (c *Client) SearchByGenre(ctx context.Context, genreID int) ([]mood.Movie, error) {
	query := url.Values{}
	query.Set("api_key", c.cfg.APIKey)
	query.Set("with_genres", strconv.Itoa(genreID))
	query.Set("include_adult", "false")
	query.Set("certification_country", "US")
	query.Set("certification.lte", "PG-13")

	endpoint := c.cfg.BaseURL + "/discover/movie?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create tmdb request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tmdb request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read tmdb response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("tmdb API error: %d %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed discoverResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse tmdb response: %w", err)
	}

	movies := make([]mood.Movie, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		movie := mood.Movie{
			ID:          r.ID,
			Title:       r.Title,
			Description: r.Overview,
			ReleaseDate: r.ReleaseDate,
			Link:        c.cfg.MovieURL + strconv.FormatInt(r.ID, 10),
		}
		if r.PosterPath != "" {
			movie.ImageURL = c.cfg.ImageBaseURL + r.PosterPath
		}
		movies = append(movies, movie)
	}

	c.logger.Debug("tmdb discover completed",
		"genreID", genreID,
		"results", len(movies),
	)

	return movies, nil
}

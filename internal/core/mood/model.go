package mood

import (
	"strings"
)

// Mood は利用者の気分を表す
type Mood string

const (
	Happy     Mood = "happy"
	Sad       Mood = "sad"
	Angry     Mood = "angry"
	Fearful   Mood = "fearful"
	Surprised Mood = "surprised"
	Disgusted Mood = "disgusted"
	Neutral   Mood = "neutral"
)

// Moods は既知の気分の一覧
var Moods = []Mood{Happy, Sad, Angry, Fearful, Surprised, Disgusted, Neutral}

// Normalize は大文字小文字と前後の空白を無視した気分を返す
func Normalize(s string) Mood {
	return Mood(strings.ToLower(strings.TrimSpace(s)))
}

// Movie は映画カタログの1作品を表す
type Movie struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ReleaseDate string `json:"releaseDate"`
	ImageURL    string `json:"imageURL,omitempty"`
	Link        string `json:"link"`
}

// GenreSuggestion はジャンルごとのおすすめ作品を表す
type GenreSuggestion struct {
	GenreID int     `json:"genreID"`
	Genre   string  `json:"genre"`
	Movies  []Movie `json:"movies"`
}

package mood

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// UnknownGenre はジャンル名が未定義の場合の表示名
const UnknownGenre = "Unknown Genre"

// Mapping は気分からジャンルIDへの対応と、ジャンルIDから名前への対応を保持する
type Mapping struct {
	Moods  map[Mood][]int `yaml:"moods"`
	Genres map[int]string `yaml:"genres"`
}

// DefaultMapping は組み込みの対応表を返す
func DefaultMapping() *Mapping {
	return &Mapping{
		Moods: map[Mood][]int{
			Happy:     {35, 16, 10402, 10751},
			Sad:       {18, 10749, 10402},
			Angry:     {28, 53, 10752, 80},
			Fearful:   {27, 9648, 53, 878},
			Surprised: {12, 878, 14, 9648},
			Disgusted: {80, 53, 27, 10752},
			Neutral:   {99, 36, 10770, 18},
		},
		Genres: map[int]string{
			28:    "Action",
			12:    "Adventure",
			16:    "Animation",
			35:    "Comedy",
			80:    "Crime",
			99:    "Documentary",
			18:    "Drama",
			10751: "Family",
			14:    "Fantasy",
			36:    "History",
			27:    "Horror",
			10402: "Music",
			9648:  "Mystery",
			10749: "Romance",
			878:   "Science Fiction",
			10770: "TV Movie",
			53:    "Thriller",
			10752: "War",
			37:    "Western",
		},
	}
}

// LoadMapping はYAMLファイルの内容を組み込みの対応表に上書きして返す
// path が空、またはファイルが存在しない場合は組み込みの対応表を返す
func LoadMapping(path string) (*Mapping, error) {
	mapping := DefaultMapping()
	if path == "" {
		return mapping, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return mapping, nil
		}
		return nil, fmt.Errorf("failed to read mood mapping: %w", err)
	}

	var override Mapping
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("failed to parse mood mapping: %w", err)
	}

	for m, ids := range override.Moods {
		mapping.Moods[Normalize(string(m))] = slices.Clone(ids)
	}
	maps.Copy(mapping.Genres, override.Genres)

	return mapping, nil
}

// GenresFor は気分に対応するジャンルIDを定義順で返す（未知の気分は空）
func (m *Mapping) GenresFor(mood Mood) []int {
	return slices.Clone(m.Moods[Normalize(string(mood))])
}

// GenreName はジャンルIDの表示名を返す
func (m *Mapping) GenreName(id int) string {
	if name, ok := m.Genres[id]; ok {
		return name
	}
	return UnknownGenre
}

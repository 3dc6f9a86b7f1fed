package indexing

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/jinford/moodrag/internal/core"
)

// Index はチャンクとEmbeddingの組を保持する追記専用のベクトルインデックス
// 構築後は読み取り専用として扱い、再構築時は新しい Index に丸ごと置き換える
type Index struct {
	mu        sync.RWMutex
	entries   []entry
	dimension int
}

type entry struct {
	chunk  Chunk
	vector []float32
	norm   float64
}

// NewIndex は空の Index を作成する
func NewIndex() *Index {
	return &Index{}
}

// Add はチャンクとEmbeddingを追加する
// 最初に追加したベクトルの次元がインデックスの次元になる
func (x *Index) Add(chunk Chunk, vector []float32) error {
	if len(vector) == 0 {
		return fmt.Errorf("%w: empty vector for chunk %d", core.ErrInvalidArgument, chunk.Ordinal)
	}
	if chunk.Len() <= 0 {
		return fmt.Errorf("%w: chunk %d has no content", core.ErrInvalidArgument, chunk.Ordinal)
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if x.dimension == 0 {
		x.dimension = len(vector)
	} else if len(vector) != x.dimension {
		return fmt.Errorf("%w: vector dimension %d does not match index dimension %d", core.ErrInvalidArgument, len(vector), x.dimension)
	}

	v := slices.Clone(vector)
	x.entries = append(x.entries, entry{
		chunk:  chunk,
		vector: v,
		norm:   norm(v),
	})
	return nil
}

// Nearest はベクトルとのコサイン類似度が高い順に最大 k 件のチャンクを返す
// 同スコアの場合は先に追加されたチャンクを優先する
func (x *Index) Nearest(vector []float32, k int) ([]Match, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive: %d", core.ErrInvalidArgument, k)
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	if len(x.entries) == 0 {
		return []Match{}, nil
	}
	if len(vector) != x.dimension {
		return nil, fmt.Errorf("%w: query dimension %d does not match index dimension %d", core.ErrInvalidArgument, len(vector), x.dimension)
	}

	type scored struct {
		pos   int
		score float64
	}

	qnorm := norm(vector)
	results := make([]scored, len(x.entries))
	for i, e := range x.entries {
		results[i] = scored{pos: i, score: cosine(vector, qnorm, e.vector, e.norm)}
	}

	slices.SortFunc(results, func(a, b scored) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return cmp.Compare(a.pos, b.pos)
	})

	if len(results) > k {
		results = results[:k]
	}

	matches := make([]Match, len(results))
	for i, r := range results {
		matches[i] = Match{Chunk: x.entries[r.pos].chunk, Score: r.score}
	}
	return matches, nil
}

// Len は格納されているチャンク数を返す
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

// Dimension はインデックスのベクトル次元数を返す（空の場合は0）
func (x *Index) Dimension() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.dimension
}

// Chunks は追加順のチャンク一覧を返す
func (x *Index) Chunks() []Chunk {
	x.mu.RLock()
	defer x.mu.RUnlock()

	chunks := make([]Chunk, len(x.entries))
	for i, e := range x.entries {
		chunks[i] = e.chunk
	}
	return chunks
}

// Each は追加順にチャンクとEmbeddingを走査する（fn が false を返すと中断）
// 渡されるベクトルはコピーなので呼び出し側で変更してよい
func (x *Index) Each(fn func(chunk Chunk, vector []float32) bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	for _, e := range x.entries {
		if !fn(e.chunk, slices.Clone(e.vector)) {
			return
		}
	}
}

func norm(v []float32) float64 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum)
}

// cosine はノルムが0のベクトルに対しては0を返す
func cosine(a []float32, anorm float64, b []float32, bnorm float64) float64 {
	if anorm == 0 || bnorm == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (anorm * bnorm)
}

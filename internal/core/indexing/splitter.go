package indexing

import (
	"fmt"
	"unicode"

	"github.com/jinford/moodrag/internal/core"
)

// sentenceTerminators は文末とみなす文字
var sentenceTerminators = map[rune]bool{
	'.':  true,
	'!':  true,
	'?':  true,
	'。': true,
	'！': true,
	'？': true,
	'\n': true,
}

// Split はテキストを重なりのあるチャンクに分割する
//
// カーソルは 0, step, 2*step, ... (step = chunkSize - overlap) に固定される。
// 各カーソル s について limit = min(s+chunkSize, n) とし、limit == n なら [s, n) を最後のチャンクとする。
// それ以外では終端 e を [limit-overlap, limit] の範囲で limit から後ろ向きに探し、
// 文末（直前が文末記号）、空白（e の位置が空白）の順に優先し、見つからなければ limit で切る。
// e は常に次のカーソル以上なので、チャンク間に欠落は生じず、重複は overlap 文字以内に収まる。
func Split(text string, chunkSize, overlap int) ([]Chunk, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive: %d", core.ErrInvalidArgument, chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap must be in [0, %d): %d", core.ErrInvalidArgument, chunkSize, overlap)
	}

	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil, nil
	}

	step := chunkSize - overlap
	chunks := make([]Chunk, 0, n/step+1)

	for start := 0; start < n; start += step {
		limit := min(start+chunkSize, n)
		end := limit
		if limit < n {
			end = findBoundary(runes, limit-overlap, limit)
		}

		chunks = append(chunks, Chunk{
			Ordinal:     len(chunks),
			StartOffset: start,
			EndOffset:   end,
			Text:        string(runes[start:end]),
		})

		if limit == n {
			break
		}
	}

	return chunks, nil
}

// findBoundary は [lo, hi] の範囲で hi から後ろ向きにチャンク終端を探す
func findBoundary(runes []rune, lo, hi int) int {
	for e := hi; e >= lo; e-- {
		if e > 0 && sentenceTerminators[runes[e-1]] {
			return e
		}
	}
	for e := hi; e >= lo; e-- {
		if e < len(runes) && unicode.IsSpace(runes[e]) {
			return e
		}
	}
	return hi
}

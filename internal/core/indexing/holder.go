package indexing

import (
	"context"
	"sync/atomic"
)

// Holder は現在有効な Index を保持し、再構築された Index へ原子的に差し替える
type Holder struct {
	current atomic.Pointer[Index]
}

// NewHolder は初期 Index を保持する Holder を作成する
func NewHolder(index *Index) *Holder {
	h := &Holder{}
	if index != nil {
		h.current.Store(index)
	}
	return h
}

// Current は現在の Index を返す（未設定の場合は nil）
func (h *Holder) Current() *Index {
	return h.current.Load()
}

// Swap は Index を差し替え、以前の Index を返す
func (h *Holder) Swap(index *Index) *Index {
	return h.current.Swap(index)
}

// Rebuild は build で新しい Index を構築し、成功した場合のみ差し替える
// 失敗した場合は以前の Index がそのまま使われ続ける
func (h *Holder) Rebuild(ctx context.Context, build func(ctx context.Context) (*Index, error)) error {
	index, err := build(ctx)
	if err != nil {
		return err
	}
	h.current.Store(index)
	return nil
}

// Package pool は外部呼び出しの同時実行数を制限するワーカープールを提供する。
package pool

import (
	"context"
	"fmt"
)

// Pool はsemaphoreパターンで同時実行数を制御する。
// Cognitoなどブロッキングする外部呼び出しをリクエスト処理から切り離して実行する。
type Pool struct {
	sem chan struct{}
}

// New は最大size並列のPoolを生成する。size が1未満の場合は1とする。
func New(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{sem: make(chan struct{}, size)}
}

// Size は最大並列数を返す。
func (p *Pool) Size() int {
	return cap(p.sem)
}

// Do はスロットを確保してからfnを実行する。
// スロット待ちの間にctxがキャンセルされた場合はfnを実行せずにエラーを返す。
func (p *Pool) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	select {
	case p.sem <- struct{}{}: // semaphore取得
	case <-ctx.Done():
		return fmt.Errorf("worker pool: %w", ctx.Err())
	}
	defer func() { <-p.sem }() // semaphore解放

	return fn(ctx)
}

// Run はDoの戻り値付き版。
func Run[T any](ctx context.Context, p *Pool, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := p.Do(ctx, func(ctx context.Context) error {
		var err error
		result, err = fn(ctx)
		return err
	})
	return result, err
}

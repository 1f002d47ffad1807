package snapshot

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/semaphore"
)

// QueueTimeout は入場スロットの空きを待つ時間の上限
// 取得そのもののタイムアウトとは独立した固定値。リアルタイムの
// スナップショット用途では長い待機より素早い拒否の方が好ましい
const QueueTimeout = 300 * time.Millisecond

// ErrBusy は待機期限内に入場スロットを確保できなかったことを表す
var ErrBusy = errors.New("入場スロットの待機がタイムアウトしました")

// Gate は同時取得数を制限するカウンティングセマフォ
type Gate struct {
	sem          *semaphore.Weighted
	queueTimeout time.Duration
}

// NewGate は新しいGateを作成する
// maxConcurrencyが1未満の場合は1に切り上げる
func NewGate(maxConcurrency int) *Gate {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &Gate{
		sem:          semaphore.NewWeighted(int64(maxConcurrency)),
		queueTimeout: QueueTimeout,
	}
}

// Acquire は入場スロットを1つ確保する
// 待機期限内に空きが出なければErrBusyを返し、呼び出し元は何も保持しない
func (g *Gate) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, g.queueTimeout)
	defer cancel()

	if err := g.sem.Acquire(waitCtx, 1); err != nil {
		return ErrBusy
	}
	return nil
}

// Release は確保したスロットを返却する
// Acquireが成功するたびに必ず1回だけ呼ぶこと
func (g *Gate) Release() {
	g.sem.Release(1)
}

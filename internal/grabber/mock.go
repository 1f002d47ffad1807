package grabber

import (
	"context"
	"sync"
	"time"
)

// Mock はテスト用のGrabber実装
// 実プロセスを起動せず、設定された結果を返す
type Mock struct {
	mu      sync.Mutex
	outcome Outcome
	delay   time.Duration
	calls   int
}

// NewMock は新しいMockを作成する
func NewMock(outcome Outcome) *Mock {
	return &Mock{outcome: outcome}
}

// Grab は設定された結果を返す
// delayが設定されていればその時間だけ取得にかかったふりをする
func (m *Mock) Grab(ctx context.Context, _ string, _ time.Duration, _ int) Outcome {
	m.mu.Lock()
	m.calls++
	outcome := m.outcome
	delay := m.delay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
		}
	}

	return outcome
}

// SetOutcome は返す結果を設定する
func (m *Mock) SetOutcome(outcome Outcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcome = outcome
}

// SetDelay は取得にかかる時間を設定する
func (m *Mock) SetDelay(delay time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = delay
}

// Calls はGrabが呼ばれた回数を返す
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestGateAcquireRelease はスロットの確保と返却をテストする
func TestGateAcquireRelease(t *testing.T) {
	gate := NewGate(2)
	ctx := context.Background()

	// 容量までは即座に確保できる
	if err := gate.Acquire(ctx); err != nil {
		t.Fatalf("1つ目の確保に失敗しました: %v", err)
	}
	if err := gate.Acquire(ctx); err != nil {
		t.Fatalf("2つ目の確保に失敗しました: %v", err)
	}

	// 満杯なら待機期限後にErrBusy
	start := time.Now()
	err := gate.Acquire(ctx)
	elapsed := time.Since(start)

	if !errors.Is(err, ErrBusy) {
		t.Fatalf("ErrBusyが期待されましたが: %v", err)
	}
	if elapsed < 200*time.Millisecond || elapsed > 2*time.Second {
		t.Errorf("待機時間が期限（300ms）から外れています: %v", elapsed)
	}

	// 返却すれば再び確保できる
	gate.Release()
	if err := gate.Acquire(ctx); err != nil {
		t.Fatalf("返却後の確保に失敗しました: %v", err)
	}
}

// TestGateFloor は容量の下限への切り上げをテストする
func TestGateFloor(t *testing.T) {
	gate := NewGate(0)

	if err := gate.Acquire(context.Background()); err != nil {
		t.Fatalf("容量1として動作するべきです: %v", err)
	}
}

// TestGateNoLeak は確保と返却の繰り返しで容量が失われないことをテストする
func TestGateNoLeak(t *testing.T) {
	gate := NewGate(1)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		start := time.Now()
		if err := gate.Acquire(ctx); err != nil {
			t.Fatalf("%d回目の確保に失敗しました: %v", i+1, err)
		}
		if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
			t.Fatalf("%d回目の確保に時間がかかりすぎです: %v", i+1, elapsed)
		}
		gate.Release()
	}
}

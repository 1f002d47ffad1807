package snapshot

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"setsuna/internal/grabber"
)

// testOptions はテスト用のServiceオプションを作成する
func testOptions() Options {
	return Options{
		Locator:        func(cameraID string) string { return "rtsp://test/" + cameraID },
		GrabTimeout:    2 * time.Second,
		Quality:        7,
		MaxConcurrency: 2,
		CacheTTL:       800 * time.Millisecond,
		Coalesce:       false,
		Logger:         zerolog.Nop(),
	}
}

// grabberFunc は関数をGrabberとして使うためのアダプター
type grabberFunc func(ctx context.Context, locator string, timeout time.Duration, quality int) grabber.Outcome

func (f grabberFunc) Grab(ctx context.Context, locator string, timeout time.Duration, quality int) grabber.Outcome {
	return f(ctx, locator, timeout, quality)
}

// successOutcome はテスト用の成功結果を作成する
func successOutcome() grabber.Outcome {
	return grabber.Outcome{
		OK:      true,
		Latency: 120 * time.Millisecond,
		Detail:  grabber.DetailDecoded,
		Image:   []byte{0xFF, 0xD8, 0xAA, 0xFF, 0xD9},
	}
}

// TestServiceCacheHit は鮮度期間内の2回目の要求がプロセスを起動しないことをテストする
func TestServiceCacheHit(t *testing.T) {
	mock := grabber.NewMock(successOutcome())
	svc := New(mock, testOptions())
	ctx := context.Background()

	first, err := svc.Take(ctx, "1")
	if err != nil {
		t.Fatalf("1回目の取得に失敗しました: %v", err)
	}

	second, err := svc.Take(ctx, "1")
	if err != nil {
		t.Fatalf("2回目の取得に失敗しました: %v", err)
	}

	if mock.Calls() != 1 {
		t.Errorf("取得は1回だけのはずです: got %d", mock.Calls())
	}

	// キャッシュから返る結果は最初の結果と同一
	if first.Outcome.Latency != second.Outcome.Latency {
		t.Error("Latencyが一致しません")
	}
	if first.Outcome.Detail != second.Outcome.Detail {
		t.Error("Detailが一致しません")
	}
	if !bytes.Equal(first.Outcome.Image, second.Outcome.Image) {
		t.Error("画像データが一致しません")
	}
}

// TestServiceCacheExpiry は鮮度期間経過後に再取得されることをテストする
func TestServiceCacheExpiry(t *testing.T) {
	mock := grabber.NewMock(successOutcome())
	opts := testOptions()
	opts.CacheTTL = 50 * time.Millisecond
	svc := New(mock, opts)
	ctx := context.Background()

	if _, err := svc.Take(ctx, "1"); err != nil {
		t.Fatalf("1回目の取得に失敗しました: %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	if _, err := svc.Take(ctx, "1"); err != nil {
		t.Fatalf("2回目の取得に失敗しました: %v", err)
	}

	if mock.Calls() != 2 {
		t.Errorf("期限切れ後は再取得されるべきです: got %d", mock.Calls())
	}
}

// TestServiceFailureCached は失敗結果もキャッシュされることをテストする
func TestServiceFailureCached(t *testing.T) {
	mock := grabber.NewMock(grabber.Outcome{
		Latency: 50 * time.Millisecond,
		Detail:  "Connection refused",
	})
	svc := New(mock, testOptions())
	ctx := context.Background()

	first, err := svc.Take(ctx, "1")
	if err != nil {
		t.Fatalf("1回目の取得に失敗しました: %v", err)
	}
	if first.Outcome.OK {
		t.Fatal("失敗結果が期待されました")
	}

	second, err := svc.Take(ctx, "1")
	if err != nil {
		t.Fatalf("2回目の取得に失敗しました: %v", err)
	}

	if mock.Calls() != 1 {
		t.Errorf("失敗結果もキャッシュされるべきです: got %d回の取得", mock.Calls())
	}
	if second.Outcome.Detail != "Connection refused" {
		t.Errorf("Detailが一致しません: got %q", second.Outcome.Detail)
	}
}

// TestServiceBusy は満杯時にErrBusyが即座に返り、キャッシュに触れないことをテストする
func TestServiceBusy(t *testing.T) {
	mock := grabber.NewMock(successOutcome())
	mock.SetDelay(1 * time.Second)

	opts := testOptions()
	opts.MaxConcurrency = 1
	opts.CacheTTL = 0
	svc := New(mock, opts)
	ctx := context.Background()

	// スロットを占有する取得を開始
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = svc.Take(ctx, "1")
	}()

	// 取得が始まるまで少し待つ
	time.Sleep(100 * time.Millisecond)

	// 別カメラへの要求は待機期限後にErrBusy
	start := time.Now()
	_, err := svc.Take(ctx, "2")
	elapsed := time.Since(start)

	if !errors.Is(err, ErrBusy) {
		t.Fatalf("ErrBusyが期待されましたが: %v", err)
	}
	if elapsed > 900*time.Millisecond {
		t.Errorf("Busyの返却に時間がかかりすぎです: %v", elapsed)
	}

	// Busyになったカメラはキャッシュされていない
	if _, ok := svc.cache.Get("2", time.Now()); ok {
		t.Error("Busy時はキャッシュに書き込まれないべきです")
	}

	<-done

	// スロットが空いたら同じカメラの取得は成功する
	mock.SetDelay(0)
	if _, err := svc.Take(ctx, "2"); err != nil {
		t.Fatalf("スロット解放後の取得に失敗しました: %v", err)
	}
}

// TestServiceSlotRelease は失敗する取得を繰り返しても容量が失われないことをテストする
func TestServiceSlotRelease(t *testing.T) {
	mock := grabber.NewMock(grabber.Outcome{Detail: grabber.DetailFault})

	opts := testOptions()
	opts.MaxConcurrency = 1
	opts.CacheTTL = 0
	svc := New(mock, opts)
	ctx := context.Background()

	// 容量1のまま、容量を超える回数の取得がすべて通ること
	for i := 0; i < 5; i++ {
		if _, err := svc.Take(ctx, "1"); err != nil {
			t.Fatalf("%d回目の取得でスロットが漏れています: %v", i+1, err)
		}
	}

	if mock.Calls() != 5 {
		t.Errorf("取得回数が一致しません: got %d, want 5", mock.Calls())
	}
}

// TestServiceClientDisconnect はクライアント切断が取得を中断せず、
// 偽のタイムアウト結果がキャッシュに残らないことをテストする
func TestServiceClientDisconnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	fake := grabberFunc(func(grabCtx context.Context, _ string, _ time.Duration, _ int) grabber.Outcome {
		// 取得中にクライアントが切断する状況を作る
		cancel()
		select {
		case <-grabCtx.Done():
			return grabber.Outcome{Detail: grabber.DetailTimeout}
		case <-time.After(100 * time.Millisecond):
			return successOutcome()
		}
	})

	svc := New(fake, testOptions())

	rec, err := svc.Take(ctx, "1")
	if err != nil {
		t.Fatalf("取得に失敗しました: %v", err)
	}
	if !rec.Outcome.OK {
		t.Fatalf("切断が取得を中断しています: %s", rec.Outcome.Detail)
	}

	// キャッシュにも成功結果が入っていること
	cached, ok := svc.cache.Get("1", time.Now())
	if !ok {
		t.Fatal("キャッシュに結果が入っていません")
	}
	if cached.Outcome.Detail == grabber.DetailTimeout {
		t.Errorf("偽のタイムアウトがキャッシュされています: %q", cached.Outcome.Detail)
	}
}

// TestServiceCoalesce は同一カメラへの同時ミスが1回の取得に合流することをテストする
func TestServiceCoalesce(t *testing.T) {
	mock := grabber.NewMock(successOutcome())
	mock.SetDelay(300 * time.Millisecond)

	opts := testOptions()
	opts.Coalesce = true
	opts.CacheTTL = 0
	svc := New(mock, opts)
	ctx := context.Background()

	const workers = 5
	startCh := make(chan struct{})
	records := make([]Record, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-startCh
			records[i], errs[i] = svc.Take(ctx, "1")
		}(i)
	}

	close(startCh)
	wg.Wait()

	if mock.Calls() != 1 {
		t.Errorf("合流により取得は1回だけのはずです: got %d", mock.Calls())
	}

	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d の取得に失敗しました: %v", i, errs[i])
		}
		if !bytes.Equal(records[i].Outcome.Image, records[0].Outcome.Image) {
			t.Errorf("worker %d の画像データが一致しません", i)
		}
	}
}

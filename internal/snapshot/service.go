package snapshot

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"setsuna/internal/grabber"
	"setsuna/internal/metrics"
)

// DetailBusy はBusy時に応答へ載せる状態説明
const DetailBusy = "busy"

// Options はServiceの構成を表す
type Options struct {
	Locator        func(cameraID string) string // カメラIDからRTSPロケーターを組み立てる
	GrabTimeout    time.Duration                // 1回の取得に許す時間
	Quality        int                          // JPEG品質（ffmpegの-q:v値）
	MaxConcurrency int                          // 同時取得数の上限
	CacheTTL       time.Duration                // キャッシュの鮮度期間
	Coalesce       bool                         // 同一カメラへの同時ミスを合流させるか
	Logger         zerolog.Logger               // ログ出力先
	Registry       *metrics.Registry            // カウンター集計（nil可）
}

// Service はリクエストごとのスナップショット取得フローを編成する
type Service struct {
	grab     grabber.Grabber
	gate     *Gate
	cache    *Cache
	flight   *flightGroup
	coalesce bool

	locator     func(cameraID string) string
	grabTimeout time.Duration
	quality     int

	logger   zerolog.Logger
	registry *metrics.Registry
}

// New は新しいServiceを作成する
func New(grab grabber.Grabber, opts Options) *Service {
	return &Service{
		grab:        grab,
		gate:        NewGate(opts.MaxConcurrency),
		cache:       NewCache(opts.CacheTTL),
		flight:      newFlightGroup(),
		coalesce:    opts.Coalesce,
		locator:     opts.Locator,
		grabTimeout: opts.GrabTimeout,
		quality:     opts.Quality,
		logger:      opts.Logger,
		registry:    opts.Registry,
	}
}

// Take はカメラのスナップショットを返す
// キャッシュに鮮度期間内の結果があればそれを返し、なければ入場制御を
// 通ってから取得する。待機期限内にスロットが空かなければErrBusyを返し、
// その場合はキャッシュに触れず、取得プロセスも起動しない
func (s *Service) Take(ctx context.Context, cameraID string) (Record, error) {
	// 鮮度期間の基準はリクエスト到着時刻
	now := time.Now()

	s.inc(ctx, "snapshot_requests_total", cameraID)

	if rec, ok := s.cache.Get(cameraID, now); ok {
		s.inc(ctx, "snapshot_cache_hits_total", cameraID)
		s.logger.Debug().Str("camera_id", cameraID).Msg("キャッシュの結果を返します")
		return rec, nil
	}

	if s.coalesce {
		return s.flight.do(cameraID, func() (Record, error) {
			return s.grabAndCache(ctx, cameraID, now)
		})
	}
	return s.grabAndCache(ctx, cameraID, now)
}

// grabAndCache は入場制御を通って取得し、結果をキャッシュへ保存する
func (s *Service) grabAndCache(ctx context.Context, cameraID string, now time.Time) (Record, error) {
	if err := s.gate.Acquire(ctx); err != nil {
		s.inc(ctx, "snapshot_busy_total", cameraID)
		s.logger.Warn().Str("camera_id", cameraID).Msg("入場スロットが空かないため拒否します")
		return Record{}, err
	}

	// 取得の打ち切り理由は期限超過だけにする。クライアント切断で
	// 中断すると、その結果がタイムアウトとしてキャッシュに残ってしまう
	grabCtx := context.WithoutCancel(ctx)

	// スロットはどの経路でも必ず1回だけ解放する
	outcome := func() grabber.Outcome {
		defer s.gate.Release()
		return s.grab.Grab(grabCtx, s.locator(cameraID), s.grabTimeout, s.quality)
	}()

	switch {
	case outcome.OK:
		s.inc(ctx, "snapshot_success_total", cameraID)
	case outcome.Detail == grabber.DetailTimeout:
		s.inc(ctx, "snapshot_timeout_total", cameraID)
	default:
		s.inc(ctx, "snapshot_failure_total", cameraID)
	}

	s.logger.Info().
		Str("camera_id", cameraID).
		Bool("ok", outcome.OK).
		Dur("latency", outcome.Latency).
		Str("detail", outcome.Detail).
		Msg("取得が完了しました")

	rec := Record{CameraID: cameraID, CapturedAt: now, Outcome: outcome}
	s.cache.Put(rec)

	return rec, nil
}

// inc はカウンターを1増やす（Registryがnilなら何もしない）
func (s *Service) inc(ctx context.Context, name, cameraID string) {
	if s.registry == nil {
		return
	}
	s.registry.Inc(ctx, name, map[string]string{"camera_id": cameraID}, 1)
}

package main

import (
	"context"
	"log"
	"os"

	"setsuna/internal/config"
	"setsuna/internal/grabber"
	"setsuna/internal/logging"
	"setsuna/internal/metrics"
	"setsuna/internal/server"
	"setsuna/internal/snapshot"
)

func main() {
	// 設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	// ロガーを初期化
	logger := logging.Setup(cfg.Log)

	// メトリクスレジストリを作成
	registry := metrics.NewRegistry()

	// スナップショットサービスを組み立てる
	svc := snapshot.New(grabber.NewForStrategy(cfg.Snapshot.Strategy), snapshot.Options{
		Locator:        cfg.SourceLocator,
		GrabTimeout:    cfg.GrabTimeout(),
		Quality:        cfg.Snapshot.JPEGQuality,
		MaxConcurrency: cfg.Snapshot.MaxConcurrency,
		CacheTTL:       cfg.CacheTTL(),
		Coalesce:       cfg.Snapshot.Coalesce,
		Logger:         logger,
		Registry:       registry,
	})

	// サーバーを作成
	srv := server.New(cfg, svc, registry, logger)

	// コンテキストを作成
	ctx := context.Background()

	// サーバーを起動
	if err := srv.Start(ctx); err != nil {
		logger.Error().Err(err).Msg("サーバーの起動に失敗しました")
		os.Exit(1)
	}
}

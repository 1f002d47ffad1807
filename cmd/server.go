// Package main はSetsunaサーバーコマンドの実装です
package main

import (
	"context"
	"flag"
	"fmt"
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
	// コマンドラインオプション
	var (
		host = flag.String("host", "", "サーバーのホスト (デフォルト: 0.0.0.0)")
		port = flag.Int("port", 0, "サーバーのポート (デフォルト: 8080)")
		help = flag.Bool("help", false, "ヘルプを表示")
	)

	flag.Parse()

	// ヘルプ表示
	if *help {
		fmt.Println("Setsuna")
		fmt.Println()
		fmt.Println("使用方法:")
		fmt.Println("  server [オプション]")
		fmt.Println()
		fmt.Println("オプション:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	// 設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	// コマンドラインオプションで設定を上書き
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
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
	logger.Info().Str("address", cfg.ServerAddress()).Msg("Setsuna サーバーを起動します")
	if err := srv.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("サーバーの起動に失敗しました")
	}
}

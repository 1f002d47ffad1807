// Package logging はzerologによるログ出力の初期化を担う
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"setsuna/internal/config"
)

// Setup はログ出力を初期化してロガーを返す
// デフォルトは人間向けのコンソール出力で、LOG_FILEが設定されている場合は
// ローテーション付きのファイル出力を併用する
func Setup(cfg config.LogConfig) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	// 人間向けのコンソール出力
	console := zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = os.Stdout
		w.TimeFormat = time.RFC3339
	})

	var writer io.Writer = console
	if cfg.File != "" {
		// ファイル出力はローテーションさせる
		rotated := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		}
		writer = zerolog.MultiLevelWriter(console, rotated)
	}

	logger := zerolog.New(writer).Level(level).With().Timestamp().Logger()

	// グローバルロガーも差し替えておく
	log.Logger = logger

	return logger
}

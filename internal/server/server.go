package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"setsuna/internal/config"
	"setsuna/internal/metrics"
	"setsuna/internal/snapshot"
)

// Server はHTTPサーバーを管理する構造体
type Server struct {
	config     *config.Config
	engine     *gin.Engine
	httpServer *http.Server
	logger     zerolog.Logger
}

// New は新しいServerインスタンスを作成する
func New(cfg *config.Config, svc *snapshot.Service, reg *metrics.Registry, logger zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		config: cfg,
		engine: engine,
		logger: logger,
		httpServer: &http.Server{
			Addr:         cfg.ServerAddress(),
			Handler:      engine,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}

	handler := &SnapshotHandler{
		config:  cfg,
		service: svc,
	}
	s.setupRoutes(handler, reg)

	return s
}

// setupRoutes はHTTPルートを設定する
func (s *Server) setupRoutes(h *SnapshotHandler, reg *metrics.Registry) {
	// ヘルスチェックエンドポイント
	s.engine.GET("/health", h.HealthCheck)

	// APIエンドポイント
	s.engine.GET("/api/status", h.GetStatus)
	s.engine.GET("/api/camera/:camera_id", h.GetCameraSnapshot)

	// メトリクスエンドポイント
	if reg != nil {
		s.engine.GET("/api/metrics", reg.GinHandlerText)
		s.engine.GET("/api/metrics.json", reg.GinHandlerJSON)
	}
}

// Start はサーバーを起動する
func (s *Server) Start(ctx context.Context) error {
	// シャットダウン用のチャンネル
	shutdownCh := make(chan error, 1)

	// サーバーを別ゴルーチンで起動
	go func() {
		s.logger.Info().Str("address", s.config.ServerAddress()).Msg("HTTPサーバーを起動しています")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			shutdownCh <- fmt.Errorf("サーバーの起動に失敗: %w", err)
		}
	}()

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	// コンテキストかシグナルを待つ
	select {
	case <-ctx.Done():
		s.logger.Info().Msg("コンテキストがキャンセルされました")
	case sig := <-sigCh:
		s.logger.Info().Str("signal", sig.String()).Msg("シグナルを受信しました")
	case err := <-shutdownCh:
		return err
	}

	// グレースフルシャットダウン
	return s.Shutdown()
}

// Shutdown はサーバーをグレースフルにシャットダウンする
func (s *Server) Shutdown() error {
	s.logger.Info().Msg("サーバーをシャットダウンしています...")

	// 5秒のタイムアウトを設定
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("サーバーのシャットダウンに失敗: %w", err)
	}

	s.logger.Info().Msg("サーバーが正常にシャットダウンされました")
	return nil
}

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Server   ServerConfig
	Source   SourceConfig
	Snapshot SnapshotConfig
	Log      LogConfig
}

// ServerConfig はHTTPサーバーの設定
type ServerConfig struct {
	Host string `env:"SERVER_HOST" envDefault:"0.0.0.0"` // リッスンするホスト
	Port int    `env:"PORT" envDefault:"8080"`           // リッスンするポート番号

	// タイムアウト設定
	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"10s"`  // 読み込みタイムアウト
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"30s"` // 書き込みタイムアウト
}

// SourceConfig はNVR（映像ソース）への接続設定
// カメラIDと組み合わせてRTSPロケーターを組み立てるために使う
type SourceConfig struct {
	NVRHost  string `env:"NVR_HOST" envDefault:"127.0.0.1"` // NVRのホスト
	RTSPPort int    `env:"RTSP_PORT" envDefault:"554"`      // RTSPポート番号
	Username string `env:"NVR_USERNAME" envDefault:"admin"` // 認証ユーザー名
	Password string `env:"NVR_PASSWORD" envDefault:""`      // 認証パスワード
	Subtype  int    `env:"SUBTYPE" envDefault:"0"`          // ストリーム種別（0: メイン, 1: サブ）
}

// SnapshotConfig はスナップショット取得まわりの設定
type SnapshotConfig struct {
	MaxConcurrency int    `env:"MAX_CONCURRENCY" envDefault:"2"`      // 同時ffmpeg実行数の上限（1未満は1に切り上げ）
	GrabTimeoutMS  int    `env:"HEALTH_TIMEOUT_MS" envDefault:"2500"` // 1回の取得に許す時間（ミリ秒）
	CacheMS        int    `env:"SNAPSHOT_CACHE_MS" envDefault:"800"`  // キャッシュの鮮度期間（ミリ秒、負値は0に切り上げ）
	JPEGQuality    int    `env:"JPEG_QV" envDefault:"7"`              // ffmpegの-q:v値（1-31、小さいほど高品質）
	Strategy       string `env:"GRABBER_STRATEGY" envDefault:"pipe"`  // 取得方式（pipe: 標準出力, file: 一時ファイル）
	Coalesce       bool   `env:"SNAPSHOT_COALESCE" envDefault:"true"` // 同一カメラへの同時ミスを1回の取得にまとめるか
}

// LogConfig はログ出力の設定
type LogConfig struct {
	Level      string `env:"LOG_LEVEL" envDefault:"info"`     // ログレベル（debug/info/warn/error）
	File       string `env:"LOG_FILE"`                        // ログファイルパス（空ならコンソールのみ）
	MaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"20"` // ローテーション閾値（MB）
	MaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"3"`  // 保持する世代数
}

// optionsFile はアドオン形式のオプションファイル（JSON）の構造
// 存在するキーだけ環境変数由来の値を上書きする
type optionsFile struct {
	NVRHost        *string `json:"nvr_host"`
	RTSPPort       *int    `json:"rtsp_port"`
	Username       *string `json:"username"`
	Password       *string `json:"password"`
	Subtype        *int    `json:"subtype"`
	MaxConcurrency *int    `json:"max_concurrency"`
	GrabTimeoutMS  *int    `json:"health_timeout_ms"`
	CacheMS        *int    `json:"snapshot_cache_ms"`
	JPEGQuality    *int    `json:"jpeg_qv"`
}

// Load は設定を読み込む
// 環境変数（開発時は.envファイル）を基本とし、OPTIONS_FILEで指定された
// JSONファイルがあればその値で上書きする
func Load() (*Config, error) {
	// .envファイルがあれば読み込む（なければ無視）
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("環境変数の解析に失敗: %w", err)
	}

	// オプションファイルによる上書き
	if path := os.Getenv("OPTIONS_FILE"); path != "" {
		if err := cfg.applyOptionsFile(path); err != nil {
			return nil, fmt.Errorf("オプションファイルの読み込みに失敗: %w", err)
		}
	}

	// 下限値への切り上げ
	cfg.normalize()

	// 設定の検証
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return cfg, nil
}

// applyOptionsFile はJSONオプションファイルの値を設定に反映する
func (c *Config) applyOptionsFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("ファイルの読み込みに失敗: %w", err)
	}

	var opts optionsFile
	if err := json.Unmarshal(data, &opts); err != nil {
		return fmt.Errorf("JSONの解析に失敗: %w", err)
	}

	if opts.NVRHost != nil {
		c.Source.NVRHost = *opts.NVRHost
	}
	if opts.RTSPPort != nil {
		c.Source.RTSPPort = *opts.RTSPPort
	}
	if opts.Username != nil {
		c.Source.Username = *opts.Username
	}
	if opts.Password != nil {
		c.Source.Password = *opts.Password
	}
	if opts.Subtype != nil {
		c.Source.Subtype = *opts.Subtype
	}
	if opts.MaxConcurrency != nil {
		c.Snapshot.MaxConcurrency = *opts.MaxConcurrency
	}
	if opts.GrabTimeoutMS != nil {
		c.Snapshot.GrabTimeoutMS = *opts.GrabTimeoutMS
	}
	if opts.CacheMS != nil {
		c.Snapshot.CacheMS = *opts.CacheMS
	}
	if opts.JPEGQuality != nil {
		c.Snapshot.JPEGQuality = *opts.JPEGQuality
	}

	return nil
}

// normalize は設定値を許容範囲の下限に切り上げる
func (c *Config) normalize() {
	if c.Snapshot.MaxConcurrency < 1 {
		c.Snapshot.MaxConcurrency = 1
	}
	if c.Snapshot.CacheMS < 0 {
		c.Snapshot.CacheMS = 0
	}
	if c.Snapshot.GrabTimeoutMS < 1 {
		c.Snapshot.GrabTimeoutMS = 1
	}
}

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	// サーバー設定の検証
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("無効なポート番号: %d", c.Server.Port)
	}

	// ソース設定の検証
	if c.Source.NVRHost == "" {
		return fmt.Errorf("NVRホストが設定されていません")
	}
	if c.Source.RTSPPort < 1 || c.Source.RTSPPort > 65535 {
		return fmt.Errorf("無効なRTSPポート番号: %d", c.Source.RTSPPort)
	}

	// スナップショット設定の検証
	if c.Snapshot.JPEGQuality < 1 || c.Snapshot.JPEGQuality > 31 {
		return fmt.Errorf("無効なJPEG品質値: %d", c.Snapshot.JPEGQuality)
	}
	if c.Snapshot.Strategy != "pipe" && c.Snapshot.Strategy != "file" {
		return fmt.Errorf("無効な取得方式: %s", c.Snapshot.Strategy)
	}

	return nil
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// SourceLocator はカメラIDからRTSPロケーターを組み立てる
// カメラIDはNVRのチャンネル番号（例: "1"）をそのまま使う
func (c *Config) SourceLocator(cameraID string) string {
	return fmt.Sprintf("rtsp://%s:%s@%s:%d/cam/realmonitor?channel=%s&subtype=%d",
		c.Source.Username, c.Source.Password,
		c.Source.NVRHost, c.Source.RTSPPort,
		cameraID, c.Source.Subtype)
}

// GrabTimeout は1回の取得に許す時間をDurationで返す
func (c *Config) GrabTimeout() time.Duration {
	return time.Duration(c.Snapshot.GrabTimeoutMS) * time.Millisecond
}

// CacheTTL はキャッシュの鮮度期間をDurationで返す
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Snapshot.CacheMS) * time.Millisecond
}

package grabber

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	// fileMargin は子プロセス自身のタイムアウトに上乗せする監視側のマージン
	fileMargin = 2 * time.Second

	// timeoutSentinelExit はtimeout(1)が子プロセスを打ち切った際の終了コード
	timeoutSentinelExit = 124
)

// FileGrabber はtimeout(1)でラップしたffmpegで一時ファイルにJPEGを書き出し、
// それを読み戻して返す。どの経路でも一時ファイルは削除する
type FileGrabber struct {
	timeoutCommand string // 時間制限ラッパー（通常はtimeout）
	ffmpegCommand  string // 実行するffmpegコマンド名（テストで差し替える）
	tmpDir         string // 一時ファイルの出力先
}

// NewFileGrabber は新しいFileGrabberを作成する
func NewFileGrabber() *FileGrabber {
	return &FileGrabber{
		timeoutCommand: "timeout",
		ffmpegCommand:  "ffmpeg",
		tmpDir:         os.TempDir(),
	}
}

// Grab は1フレームを取得してOutcomeとして返す
func (g *FileGrabber) Grab(ctx context.Context, locator string, timeout time.Duration, quality int) Outcome {
	// timeout(1)は秒指定なので秒単位に切り上げる
	seconds := int64((timeout + time.Second - 1) / time.Second)
	if seconds < 1 {
		seconds = 1
	}

	outPath := filepath.Join(g.tmpDir, fmt.Sprintf("snap_%s.jpg", uuid.NewString()))

	// どの経路でも一時ファイルは残さない
	defer func() {
		_ = os.Remove(outPath)
	}()

	args := []string{
		fmt.Sprintf("%ds", seconds),
		g.ffmpegCommand,
		"-hide_banner",
		"-loglevel", "error",
		"-rtsp_transport", "tcp",
		"-i", locator,
		"-an", "-sn", "-dn",
		"-frames:v", "1",
		"-vf", "scale=-2:640",
		"-q:v", strconv.Itoa(quality),
		"-y", outPath,
	}

	// 監視側の期限。超過時はCommandContextが子プロセスをkillして回収する
	superCtx, cancel := context.WithTimeout(ctx, time.Duration(seconds)*time.Second+fileMargin)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(superCtx, g.timeoutCommand, args...)
	cmd.Stderr = &stderr
	setupProcessKill(cmd)

	start := time.Now()
	err := cmd.Run()
	latency := time.Since(start)

	// 監視側の期限超過を最優先で判定する
	if errors.Is(superCtx.Err(), context.DeadlineExceeded) {
		return Outcome{Latency: latency, Detail: DetailTimeout}
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// 子プロセス自身の時間制限による打ち切り
			if exitErr.ExitCode() == timeoutSentinelExit {
				return Outcome{Latency: latency, Detail: DetailTimeout}
			}
			return Outcome{Latency: latency, Detail: failureDetail(stderr.Bytes(), exitErr.ExitCode())}
		}
		// 起動・通信での予期しない失敗
		return Outcome{Latency: latency, Detail: DetailFault}
	}

	image, readErr := os.ReadFile(outPath)
	if readErr != nil || len(image) == 0 {
		return Outcome{Latency: latency, Detail: DetailReadFailed}
	}

	return Outcome{OK: true, Latency: latency, Detail: DetailDecoded, Image: image}
}

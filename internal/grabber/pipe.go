package grabber

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strconv"
	"time"
)

// pipeMargin は子プロセス自身のタイムアウトに上乗せする監視側のマージン
// 子プロセスが自前の時間制限を超えて固まった場合でもここで強制終了する
const pipeMargin = 1 * time.Second

// 1080p出力。アスペクト比を保ったまま1920x1080にパディングする（引き伸ばさない）
const pipeVideoFilter = "scale=1920:1080:force_original_aspect_ratio=decrease,pad=1920:1080:(ow-iw)/2:(oh-ih)/2"

// PipeGrabber はffmpegの標準出力パイプ経由でJPEGを取得する
type PipeGrabber struct {
	command string // 実行するコマンド名（テストで差し替える）
}

// NewPipeGrabber は新しいPipeGrabberを作成する
func NewPipeGrabber() *PipeGrabber {
	return &PipeGrabber{command: "ffmpeg"}
}

// Grab は1フレームを取得してOutcomeとして返す
func (g *PipeGrabber) Grab(ctx context.Context, locator string, timeout time.Duration, quality int) Outcome {
	if timeout < time.Millisecond {
		timeout = time.Millisecond
	}

	// ffmpegの-stimeoutはマイクロ秒単位（RTSPの接続・読み取りタイムアウト）
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-rtsp_transport", "tcp",
		"-stimeout", strconv.FormatInt(timeout.Microseconds(), 10),
		"-i", locator,
		"-an",
		"-frames:v", "1",
		"-vf", pipeVideoFilter,
		"-q:v", strconv.Itoa(quality),
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"pipe:1",
	}

	// 監視側の期限。超過時はCommandContextが子プロセスをkillして回収する
	superCtx, cancel := context.WithTimeout(ctx, timeout+pipeMargin)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(superCtx, g.command, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	setupProcessKill(cmd)

	start := time.Now()
	err := cmd.Run()
	latency := time.Since(start)

	// 監視側の期限超過を最優先で判定する
	if errors.Is(superCtx.Err(), context.DeadlineExceeded) {
		return Outcome{Latency: latency, Detail: DetailTimeout}
	}

	if err == nil {
		if stdout.Len() > 0 {
			return Outcome{OK: true, Latency: latency, Detail: DetailDecoded, Image: stdout.Bytes()}
		}
		// 正常終了したのに出力がない
		return Outcome{Latency: latency, Detail: DetailReadFailed}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return Outcome{Latency: latency, Detail: failureDetail(stderr.Bytes(), exitErr.ExitCode())}
	}

	// 起動・通信での予期しない失敗
	return Outcome{Latency: latency, Detail: DetailFault}
}

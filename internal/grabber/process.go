package grabber

import (
	"os/exec"
	"syscall"
	"time"
)

// killWaitDelay は強制終了後にパイプの解放を待つ時間の上限
const killWaitDelay = 1 * time.Second

// setupProcessKill は監視期限の超過時にプロセスグループごと強制終了するよう設定する
// CommandContextの既定では直接の子しかkillされず、ffmpegがtimeout(1)の
// 孫プロセスとして残った場合に標準出力のパイプを握り続けてWaitが戻らない。
// プロセスグループへのSIGKILLで子孫ごと回収し、それでも残る孤児がいても
// WaitDelayでWaitを打ち切る
func setupProcessKill(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = killWaitDelay
}

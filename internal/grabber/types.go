package grabber

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Detailに使う定数
const (
	DetailTimeout    = "timeout"         // 取得期限を超過した
	DetailDecoded    = "decoded 1 frame" // 1フレームの取得に成功した
	DetailReadFailed = "read failed"     // プロセスは正常終了したが画像を取り出せなかった
	DetailFault      = "exception"       // プロセスの起動・通信で予期しない失敗が起きた

	// detailMaxLen はDetailの最大バイト数
	// クライアントに返す診断文字列が無制限に膨らむのを防ぐ
	detailMaxLen = 200
)

// Outcome は1回の取得試行の結果を表す
// 一度生成されたら変更しない
type Outcome struct {
	OK      bool          // 1フレームの取得に成功したか
	Latency time.Duration // 取得試行に費やした時間（失敗時も常に設定される）
	Detail  string        // 短い状態説明（常に非空、200バイト以内）
	Image   []byte        // JPEG画像データ（OKがtrueの場合のみ）
}

// Grabber は静止画取得の能力を表すインターフェース
// 実プロセスを起動せずにテストできるよう、Mockと差し替え可能にしている
type Grabber interface {
	// Grab は指定されたロケーターから1フレームを取得する
	// エラーは返さず、あらゆる失敗をOutcomeとして返す
	Grab(ctx context.Context, locator string, timeout time.Duration, quality int) Outcome
}

// failureDetail はffmpegの診断出力からDetail文字列を作る
// 標準エラー出力の最後の非空行を使い、何もなければ終了コードを報告する
func failureDetail(stderr []byte, exitCode int) string {
	lines := strings.Split(strings.TrimSpace(string(stderr)), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line != "" {
			return truncateDetail(line)
		}
	}
	return fmt.Sprintf("ffmpeg exit code %d", exitCode)
}

// truncateDetail はDetailを最大長に切り詰める
// マルチバイト文字の途中で切らないよう、ルーン境界まで戻す
func truncateDetail(s string) string {
	if len(s) <= detailMaxLen {
		return s
	}
	cut := detailMaxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// Package snapshot はスナップショット取得の中核を担う
//
// # 責務
// - 同時ffmpeg実行数の制限（入場制御、待機期限付き）
// - カメラごとの直近結果の短期キャッシュ
// - リクエストごとの取得フローの編成（キャッシュ確認 → 入場 → 取得 → キャッシュ更新）
// - 同一カメラへの同時ミスの合流（設定で無効化可能）
//
// # 仕様
// - 入場待機の期限は300ミリ秒固定。超過はErrBusyとして即座に呼び出し元へ返す
// - 失敗結果もキャッシュする（到達不能なカメラへの連打を防ぐ）
// - キャッシュのタイムスタンプはリクエスト到着時刻を使う
// - Busy時はキャッシュに触れず、ffmpegも起動しない
// - 取得した入場スロットはどの経路でも必ず1回だけ解放される
// - Thread-safe な操作をサポート
package snapshot

// Package grabber は外部プロセス経由の静止画取得を担う
//
// # 責務
// - ffmpegによるRTSPストリームからの1フレーム取得
// - 取得結果の決定的な分類（成功/タイムアウト/失敗/内部異常）
// - タイムアウト時の子プロセスの強制終了と回収
// - 一時ファイルなど副作用の後始末
//
// # 仕様
// - Grabberは決してエラーを返さない。あらゆる失敗はOutcomeに変換される
// - 子プロセス自身の時間制限に監視側のマージンを上乗せして二重に打ち切る
// - Detailは常に非空で200バイト以内
// - ImageはOKがtrueの場合にのみ設定される
// - PipeGrabber: 標準出力パイプ経由でJPEGを受け取る（デフォルト）
// - FileGrabber: 一時ファイル経由でJPEGを受け取る
//
// # 前提要件
//   - ffmpeg: フレーム取得に使用
//     Ubuntu/Debian: sudo apt install ffmpeg
//     Red Hat/Fedora: sudo dnf install ffmpeg
//   - coreutils timeout: FileGrabberの時間制限ラッパーに使用
package grabber

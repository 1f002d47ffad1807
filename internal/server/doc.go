// Package server は、HTTPサーバーとAPIエンドポイントを管理します。
//
// このパッケージは、HTTPサーバーの起動、ルーティング、
// スナップショット応答の組み立てを担当します。
//
// 責務:
//   - HTTPサーバーの起動と管理
//   - スナップショットAPI（ステータスJSON + JPEG画像のマルチパート応答）
//   - ヘルスチェック・システム状態・メトリクスの公開
//   - クライアントからのリクエスト処理
//
// 仕様:
//   - ルーティングはgin-gonic/ginを使用
//   - 成功時はmultipart/mixed（固定バウンダリ）でJSONと画像を返す
//   - 入場制御で拒否された場合のみ503を返し、取得失敗は200のJSONで返す
//   - グレースフルシャットダウンに対応
//   - 複数クライアントの同時接続をサポート
package server

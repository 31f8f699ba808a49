// Package server は、HTTPサーバーと制御APIを管理します。
//
// このパッケージは、HTTPサーバーの起動、ルーティング、
// 録画の開始・停止API、プレビュー配信を担当します。
//
// 責務:
//   - HTTPサーバーの起動と管理
//   - 録画セッションの開始・停止API
//   - カメラパラメータの取得・設定API
//   - MJPEGプレビューとウォーターフォール画像の配信
//   - 操作用ページと静的ファイルの配信
//
// 仕様:
//   - ルーティングはgin-gonicを使用
//   - プレビューはmultipart/x-mixed-replaceで配信
//   - グレースフルシャットダウンに対応
//   - 複数クライアントの同時接続をサポート
package server

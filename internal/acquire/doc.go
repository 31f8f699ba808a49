// Package acquire はカメラからの連続フレーム取得と録画セッションの制御を提供する。
//
// # 責務
//
//   - 単一ゴルーチンによる取得ループの実行
//   - プレビューシンクへのフレーム転送と統計スナップショットの配信
//   - 録画ワーカーへの書き込みと正規フレームカウンタの管理
//   - 録画上限（フレーム数・経過秒数）の監視と自動停止
//
// # 仕様
//
//   - 取得中はループのゴルーチンだけがカメラソースに触れる
//   - ワーカーへのWriteは非ブロッキングで、受理された場合のみカウントする
//   - 録画セッションは同時に1つまで。開始中の二重開始はエラー
//   - 停止時は録画の終了処理（ドレイン・エンコーダ確定）をループ停止より先に行う
package acquire

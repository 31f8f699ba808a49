// Package camera はフレーム供給元の抽象化とその実装を担う
//
// # 責務
// - モノクロフレーム（8/16ビット）のデータモデル
// - 短タイムアウトの非ブロッキングなフレーム取得インターフェース
// - 能力照会可能なカメラパラメータストア（値・範囲・増分・列挙値）
// - 合成テストパターンによるシミュレーションソース
// - ffmpeg経由のV4L2デバイスソース
// - V4L2デバイスの検出
//
// # 使い分け
// このパッケージは以下の場合に使用する：
// - 取得ループへフレームを供給したい
// - 実デバイスなしでパイプラインを動かしたい（シミュレーション）
// - 露光時間・ゲイン・フレームレートを実行時に照会/変更したい
//
// # 仕様
// - Grabは指定タイムアウト内に1フレームを返すか、取得失敗(false)を返す
// - 取得失敗はエラーではない（取得ループが静かにリトライする）
// - 取得ループ実行中はループのゴルーチンだけがGrabを呼ぶ
// - フレームは取得ごとに新しいバッファを確保し、呼び出し側に所有権を渡す
//
// # 前提要件
//   - ffmpeg: V4L2デバイスからのキャプチャに使用（シミュレーション時は不要）
//     Ubuntu/Debian: sudo apt install ffmpeg
//   - v4l-utils: デバイス名の取得に使用（任意）
//     Ubuntu/Debian: sudo apt install v4l-utils
package camera

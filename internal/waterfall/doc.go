// Package waterfall はウォーターフォール（カイモグラフ）データの処理を担う
//
// # 責務
// - .wtf/.kmg バイナリ形式のヘッダーとペイロードの読み書き
// - デシア（deshear）変換によるサブピクセル行補正
// - ライン収集用のリングバッファ管理
// - 2次元フレームから1次元ラインへの縮約（中央値）
// - グレースケールPNGへのレンダリング
//
// # 仕様
// - ヘッダー: ASCIIマジック("WTF1"/"KMG1"/"WTFDSR") + 幅(u16リトルエンディアン)
//   + DSR変種のみ量子化デシア角1バイト
// - ペイロード: 幅バイトの行の連結。フッターなし。行数はファイルサイズから導出
// - デシアは純粋関数として実装し、ライブ補正と保存後の再構成の両方で使う
// - 範囲外の参照は背景値で埋める。ラップもミラーもしない
package waterfall

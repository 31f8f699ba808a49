// Package record は録画ワーカーと外部エンコーダの起動を管理します。
//
// このパッケージは、取得ループから渡されるフレームを
// ブロックせずに受け取り、バックグラウンドで永続化します。
//
// 責務:
//   - 録画ワーカーの共通契約（Start / Write / Stop）
//   - ストリーミングワーカー: ffmpegへのパイプ供給によるH.264録画
//   - ダンプワーカー: 連番rawファイルへの書き出しと後段エンコード
//   - ウォーターフォールワーカー: ラインへの縮約と.wtfファイル書き出し
//   - ffmpegサブプロセスの起動・監視・終了処理
//
// 仕様:
//   - Writeは有界時間で返る。キュー満杯時はワーカーごとの方針でフレームを破棄する
//   - ストリーミングとウォーターフォールは新しいフレームを捨てる（falseを返す）
//   - ダンプは最も古いキュー内フレームを捨てて受け入れる（欠番は後段で補完）
//   - Stopはキューをドレインし、深さに比例したタイムアウトで合流する
//   - エンコーダ実行ファイルの不在はErrEncoderNotFoundとして区別して報告する
//   - プロセス強制終了は終了待ちタイムアウト時の最終手段に限る
package record

// Package main はウォーターフォールファイルをPNGへ変換するコマンドの実装です
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"rensha/internal/waterfall"
)

func main() {
	// コマンドラインオプション
	var (
		out     = flag.String("out", "", "出力PNGパス (デフォルト: 入力の拡張子を.pngへ変更)")
		deshear = flag.Bool("deshear", false, "デシア補正を適用")
		angle   = flag.Float64("angle", -1, "デシア角（度）。負値ならヘッダーの角度を使用")
		dy      = flag.Float64("dy", 1.0, "ライン間隔（マイクロメートル）")
		px      = flag.Float64("px", 1.0, "ピクセル間隔（マイクロメートル）")
		bg      = flag.Int("bg", 255, "範囲外の背景値 (0-255)")
		help    = flag.Bool("help", false, "ヘルプを表示")
	)

	flag.Parse()

	// ヘルプ表示
	if *help || flag.NArg() == 0 {
		fmt.Println("Rensha コンバーター")
		fmt.Println()
		fmt.Println("使用方法:")
		fmt.Println("  convert [オプション] <入力.wtf/.kmg> ...")
		fmt.Println()
		fmt.Println("オプション:")
		flag.PrintDefaults()
		if *help {
			os.Exit(0)
		}
		os.Exit(2)
	}

	if *bg < 0 || *bg > 255 {
		log.Fatalf("背景値が範囲外です: %d", *bg)
	}

	inputs := flag.Args()
	if len(inputs) > 1 && *out != "" {
		log.Println("警告: 複数入力時は-outを無視します")
		*out = ""
	}

	for _, in := range inputs {
		outPath := *out
		if outPath == "" {
			outPath = strings.TrimSuffix(in, filepath.Ext(in)) + ".png"
		}
		if err := convertFile(in, outPath, *deshear, *angle, *dy, *px, byte(*bg)); err != nil {
			log.Fatalf("%sの変換に失敗しました: %v", in, err)
		}
	}
}

// convertFile は1ファイルをデコードしてPNGへ書き出す
func convertFile(in, out string, deshear bool, angleDeg, dyUm, pxUm float64, bg byte) error {
	im, err := waterfall.DecodeFile(in)
	if err != nil {
		return err
	}
	log.Printf("%s: %dライン x %dピクセル (%s)", in, im.Lines(), im.Header.Width, im.Header.Magic)

	rows := im.Rows
	if deshear {
		// 角度はオプション指定を優先し、なければヘッダー値を使う
		a := angleDeg
		if a < 0 {
			a = im.Header.Angle
		}
		if a > 0 {
			rows = waterfall.Deshear(rows, a, dyUm, pxUm, bg)
			log.Printf("デシア補正を適用しました: %.2f度", a)
		} else {
			log.Println("注意: デシア角が0のため補正をスキップします")
		}
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("出力ファイルの作成に失敗: %w", err)
	}
	if err := waterfall.WritePNG(f, rows, im.Header.Width); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("出力ファイルのクローズに失敗: %w", err)
	}

	log.Printf("保存しました: %s", out)
	return nil
}

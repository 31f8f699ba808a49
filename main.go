package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"rensha/internal/acquire"
	"rensha/internal/camera"
	"rensha/internal/config"
	"rensha/internal/server"
)

func main() {
	// .envがあれば環境変数として読み込む
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			log.Fatalf(".envの読み込みに失敗しました: %v", err)
		}
		log.Println(".envを読み込みました")
	}

	// 設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	// カメラソースを作成
	source := camera.NewSource(camera.SourceOptions{
		Device:    cfg.Camera.Device,
		Width:     cfg.Camera.Width,
		Height:    cfg.Camera.Height,
		BitDepth:  cfg.Camera.BitDepth,
		FrameRate: cfg.Camera.FPS,
		Simulate:  cfg.Camera.Simulate,
	})

	// プレビューハブと取得ループを作成
	hub := server.NewPreviewHub(cfg.Waterfall.PreviewLines, cfg.Camera.Width,
		byte(cfg.Waterfall.Background), nil)
	loop := acquire.NewLoop(source, hub, nil)

	// 取得ループを起動
	ctx := context.Background()
	if err := loop.Start(ctx); err != nil {
		log.Fatalf("取得ループの起動に失敗しました: %v", err)
	}
	defer loop.Stop()

	// 初期パラメータを適用
	if cfg.Camera.ExposureUs > 0 {
		if err := source.Set(camera.ParamExposureUs, cfg.Camera.ExposureUs); err != nil {
			log.Printf("露光時間の設定に失敗しました: %v", err)
		}
	}
	if cfg.Camera.Gain > 0 {
		if err := source.Set(camera.ParamGain, cfg.Camera.Gain); err != nil {
			log.Printf("ゲインの設定に失敗しました: %v", err)
		}
	}

	// サーバーを起動（シグナル受信まで待機する）
	srv := server.New(cfg, source, loop, hub)
	if err := srv.Start(ctx); err != nil {
		log.Fatalf("サーバーの起動に失敗しました: %v", err)
	}
}

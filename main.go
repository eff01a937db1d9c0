package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SilentEigen/pdf-hindi-translator/config"
	"github.com/SilentEigen/pdf-hindi-translator/handlers"
	"github.com/SilentEigen/pdf-hindi-translator/layout"
	"github.com/SilentEigen/pdf-hindi-translator/middleware"
	"github.com/SilentEigen/pdf-hindi-translator/ocr"
	"github.com/SilentEigen/pdf-hindi-translator/storage"
	"github.com/SilentEigen/pdf-hindi-translator/translator"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}
	gin.SetMode(cfg.Server.Mode)

	logger, err := translator.NewLoggerFrom(cfg.Log, "server")
	if err != nil {
		return fmt.Errorf("创建日志失败: %w", err)
	}
	defer logger.Close()

	fonts, err := translator.NewFontSetFrom(cfg.Render, cfg.Translator.TargetLanguage)
	if err != nil {
		log.Printf("⚠️  字体加载失败，只使用内置字体: %v", err)
	}

	store, err := storage.New(cfg.Storage)
	if err != nil {
		return fmt.Errorf("初始化存储失败: %w", err)
	}

	var recognizer layout.TextRecognizer
	if cfg.Extract.OCR {
		client, err := ocr.New(cfg.Extract.OCRLanguage)
		if err != nil {
			log.Printf("⚠️  OCR 不可用: %v", err)
		} else {
			defer client.Close()
			recognizer = client
		}
	}

	sessions := middleware.NewSessionManager(time.Duration(cfg.Server.SessionMaxAge) * time.Second)
	go sessions.RunCleanup(context.Background(), time.Hour)

	r := gin.Default()
	r.MaxMultipartMemory = 100 << 20
	r.Use(middleware.SessionMiddleware(sessions))

	h := handlers.NewHandler(cfg, store, fonts, recognizer, logger)
	h.RegisterRoutes(r)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	log.Printf("🚀 PDF 翻译服务启动在 %s（提供商: %s，目标语言: %s）", cfg.Server.Port, cfg.Translator.Provider, cfg.Translator.TargetLanguage)
	log.Println("✅ 会话隔离已启用 - 每个用户的任务和文件完全独立")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("服务启动失败: %w", err)
	}
	return nil
}

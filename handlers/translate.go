package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/SilentEigen/pdf-hindi-translator/config"
	"github.com/SilentEigen/pdf-hindi-translator/layout"
	"github.com/SilentEigen/pdf-hindi-translator/middleware"
	"github.com/SilentEigen/pdf-hindi-translator/models"
	"github.com/SilentEigen/pdf-hindi-translator/storage"
	"github.com/SilentEigen/pdf-hindi-translator/translator"
)

// TranslateFuncFactory 根据请求创建翻译函数
type TranslateFuncFactory func(provider translator.ProviderConfig, req models.TranslateRequest, cache *translator.Cache) (layout.TranslateFunc, error)

// Handler HTTP 任务接口
type Handler struct {
	Config  *config.Config
	Tasks   *TaskManager
	Storage storage.Storage
	Fonts   *layout.FontSet
	OCR     layout.TextRecognizer
	Logger  *layout.PDFLogger
	// NewTranslateFunc 默认使用配置的 LLM 提供商
	NewTranslateFunc TranslateFuncFactory
}

// NewHandler 创建处理器
func NewHandler(cfg *config.Config, store storage.Storage, fonts *layout.FontSet, ocr layout.TextRecognizer, logger *layout.PDFLogger) *Handler {
	h := &Handler{
		Config:  cfg,
		Tasks:   NewTaskManager(),
		Storage: store,
		Fonts:   fonts,
		OCR:     ocr,
		Logger:  logger,
	}
	h.NewTranslateFunc = h.llmTranslateFunc
	return h
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.HealthHandler)

	api := r.Group("/api")
	{
		api.POST("/translate", h.TranslateHandler)
		api.GET("/status/:taskId", h.GetStatusHandler)
		api.GET("/download/:taskId", h.DownloadHandler)
		api.GET("/tasks", h.GetTasksHandler)
		api.DELETE("/tasks/:taskId", h.DeleteTaskHandler)
	}
}

// HealthHandler 健康检查
func (h *Handler) HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "PDF Hindi Translator",
		"ocr":     h.OCR != nil,
	})
}

// TranslateHandler 处理翻译请求
func (h *Handler) TranslateHandler(c *gin.Context) {
	sessionID := middleware.GetSessionID(c)
	if sessionID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "无效的会话"})
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "未找到上传文件"})
		return
	}
	if strings.ToLower(filepath.Ext(file.Filename)) != ".pdf" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "只支持 .pdf 文件"})
		return
	}
	if limit := h.Config.Server.MaxUploadMB << 20; limit > 0 && file.Size > limit {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("文件超过 %d MB 限制", h.Config.Server.MaxUploadMB)})
		return
	}

	req, err := h.parseRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	provider := h.providerConfig(req.LLMConfig)
	if provider.Type.NeedsAPIKey() && provider.APIKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "API Key 不能为空"})
		return
	}

	taskID := uuid.New().String()
	task := &models.TranslateTask{
		ID:             taskID,
		SessionID:      sessionID,
		SourceFile:     filepath.Base(file.Filename),
		TargetLanguage: req.TargetLanguage,
		Status:         models.StatusPending,
		CreatedAt:      time.Now(),
	}
	h.Tasks.AddTask(sessionID, task)

	uploadDir := filepath.Join(h.Config.Server.DataDir, sessionID, "uploads")
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		h.failTask(sessionID, taskID, "创建上传目录失败: "+err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "创建上传目录失败"})
		return
	}

	sourcePath := filepath.Join(uploadDir, taskID+".pdf")
	if err := c.SaveUploadedFile(file, sourcePath); err != nil {
		h.failTask(sessionID, taskID, "保存文件失败: "+err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "保存文件失败: " + err.Error()})
		return
	}

	go h.processTranslation(sessionID, taskID, sourcePath, provider, req)

	c.JSON(http.StatusOK, gin.H{
		"taskId":  taskID,
		"message": "翻译任务已创建",
	})
}

// parseRequest 解析表单参数，缺省值取自配置
func (h *Handler) parseRequest(c *gin.Context) (models.TranslateRequest, error) {
	req := models.TranslateRequest{
		TargetLanguage:   strings.TrimSpace(c.PostForm("targetLanguage")),
		UserPrompt:       c.PostForm("userPrompt"),
		ForceRetranslate: c.PostForm("forceRetranslate") == "true",
		MaxPages:         h.Config.Extract.MaxPages,
		OCR:              h.Config.Extract.OCR,
	}
	if req.TargetLanguage == "" {
		req.TargetLanguage = h.Config.Translator.TargetLanguage
	}

	if pages := c.PostForm("pages"); pages != "" {
		n, err := strconv.Atoi(pages)
		if err != nil || n < 0 {
			return req, fmt.Errorf("pages 必须是非负整数")
		}
		req.MaxPages = n
	}
	if ocrFlag := c.PostForm("ocr"); ocrFlag != "" {
		enabled, err := strconv.ParseBool(ocrFlag)
		if err != nil {
			return req, fmt.Errorf("ocr 必须是 true 或 false")
		}
		req.OCR = enabled
	}

	if llmConfigStr := c.PostForm("llmConfig"); llmConfigStr != "" {
		if err := json.Unmarshal([]byte(llmConfigStr), &req.LLMConfig); err != nil {
			return req, fmt.Errorf("LLM 配置格式错误: %w", err)
		}
	}
	return req, nil
}

// providerConfig 请求中的 LLM 配置覆盖服务配置；切换提供商时不沿用服务端的密钥与地址
func (h *Handler) providerConfig(llm models.LLMConfig) translator.ProviderConfig {
	base := h.Config.Translator
	if llm.Provider != "" && !strings.EqualFold(llm.Provider, base.Provider) {
		base.Provider = llm.Provider
		base.APIKey = ""
		base.APIURL = ""
		base.Model = ""
	}
	if llm.APIKey != "" {
		base.APIKey = llm.APIKey
	}
	if llm.APIURL != "" {
		base.APIURL = llm.APIURL
	}
	if llm.Model != "" {
		base.Model = llm.Model
	}
	if llm.Temperature > 0 {
		base.Temperature = llm.Temperature
	}
	if llm.MaxTokens > 0 {
		base.MaxTokens = llm.MaxTokens
	}
	return translator.ProviderConfigFrom(base)
}

// llmTranslateFunc 默认的翻译函数工厂
func (h *Handler) llmTranslateFunc(provider translator.ProviderConfig, req models.TranslateRequest, cache *translator.Cache) (layout.TranslateFunc, error) {
	cfg := h.Config.Translator
	cfg.TargetLanguage = req.TargetLanguage
	client, err := translator.NewClientFromConfig(provider, cfg, cache, req.UserPrompt)
	if err != nil {
		return nil, err
	}
	client.WithLogger(h.Logger)
	return client.Translate, nil
}

func (h *Handler) failTask(sessionID, taskID, message string) {
	h.Tasks.UpdateTask(sessionID, taskID, func(t *models.TranslateTask) {
		t.Status = models.StatusFailed
		t.Error = message
	})
}

// processTranslation 处理翻译任务
func (h *Handler) processTranslation(sessionID, taskID, sourcePath string, provider translator.ProviderConfig, req models.TranslateRequest) {
	prefix := fmt.Sprintf("[会话 %s][任务 %s]", shortID(sessionID), taskID)
	h.Tasks.UpdateTask(sessionID, taskID, func(t *models.TranslateTask) {
		t.Status = models.StatusProcessing
	})
	log.Printf("%s 开始处理翻译", prefix)

	defer func() {
		if r := recover(); r != nil {
			h.failTask(sessionID, taskID, fmt.Sprintf("翻译过程出错: %v", r))
			log.Printf("%s 翻译失败（panic）: %v", prefix, r)
		}
	}()
	defer os.Remove(sourcePath)

	sessionDir := filepath.Join(h.Config.Server.DataDir, sessionID)

	var cache *translator.Cache
	if h.Config.Cache.Enabled {
		var err error
		cache, err = translator.NewCache(filepath.Join(sessionDir, "cache"))
		if err != nil {
			log.Printf("%s 创建缓存失败，不使用缓存: %v", prefix, err)
		} else if req.ForceRetranslate {
			log.Printf("%s 强制重新翻译模式：将忽略现有缓存", prefix)
			cache.DisableCache()
		}
	}

	log.Printf("%s 创建翻译客户端，提供商: %s, 模型: %s", prefix, provider.Type, provider.Model)
	translate, err := h.NewTranslateFunc(provider, req, cache)
	if err != nil {
		h.failTask(sessionID, taskID, "创建翻译客户端失败: "+err.Error())
		log.Printf("%s 创建客户端失败: %v", prefix, err)
		return
	}

	workDir := filepath.Join(sessionDir, "work")
	if err := os.MkdirAll(workDir, 0755); err != nil {
		h.failTask(sessionID, taskID, "创建工作目录失败: "+err.Error())
		return
	}
	workPath := filepath.Join(workDir, taskID+".pdf")
	defer os.Remove(workPath)

	opts := translator.TranslateOptions{
		MaxPages:    req.MaxPages,
		Workers:     h.Config.Render.Workers,
		Concurrency: h.Config.Translator.Concurrency,
		Fit:         translator.FitParamsFrom(h.Config.Render),
	}
	if req.OCR {
		opts.OCR = h.OCR
	}
	if h.Config.Extract.AssetDir != "" {
		opts.AssetDir = filepath.Join(sessionDir, h.Config.Extract.AssetDir, taskID)
	}

	dt := &translator.DocumentTranslator{Translate: translate, Fonts: h.Fonts, Logger: h.Logger}
	result, err := dt.TranslateDocument(context.Background(), sourcePath, workPath, opts, func(progress float64) {
		h.Tasks.UpdateTask(sessionID, taskID, func(t *models.TranslateTask) {
			if progress > t.Progress {
				t.Progress = progress
			}
		})
	})
	if err != nil {
		h.failTask(sessionID, taskID, "翻译失败: "+describeError(err))
		log.Printf("%s 翻译失败: %v", prefix, err)
		return
	}

	outputName := taskID + ".pdf"
	location, err := h.saveOutput(sessionID, outputName, workPath)
	if err != nil {
		h.failTask(sessionID, taskID, "保存结果失败: "+err.Error())
		log.Printf("%s 保存结果失败: %v", prefix, err)
		return
	}

	h.Tasks.UpdateTask(sessionID, taskID, func(t *models.TranslateTask) {
		t.Status = models.StatusCompleted
		t.Progress = 1.0
		t.CompletedAt = time.Now()
		t.OutputName = outputName
		t.OutputLocation = location
		t.Pages = result.Pages
		t.SkippedPages = result.SkippedPages
		t.Overflows = result.Overflows
	})

	log.Printf("%s 翻译完成: %s", prefix, location)
}

func (h *Handler) saveOutput(sessionID, name, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return h.Storage.Save(context.Background(), sessionID, name, f)
}

// describeError 面向用户的错误说明
func describeError(err error) string {
	switch {
	case layout.IsCode(err, layout.ErrDocumentOpen):
		return "无法读取 PDF 文件，文件可能已损坏或加密: " + err.Error()
	case errors.Is(err, layout.ErrNoContent):
		return "PDF 中没有可处理的页面"
	default:
		return err.Error()
	}
}

// GetStatusHandler 获取任务状态
func (h *Handler) GetStatusHandler(c *gin.Context) {
	sessionID := middleware.GetSessionID(c)
	if sessionID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "无效的会话"})
		return
	}

	task, exists := h.Tasks.GetTask(sessionID, c.Param("taskId"))
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "任务不存在或无权访问"})
		return
	}

	c.JSON(http.StatusOK, task)
}

// DownloadHandler 下载翻译后的文件
func (h *Handler) DownloadHandler(c *gin.Context) {
	sessionID := middleware.GetSessionID(c)
	if sessionID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "无效的会话"})
		return
	}

	task, exists := h.Tasks.GetTask(sessionID, c.Param("taskId"))
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "任务不存在或无权访问"})
		return
	}
	if task.Status != models.StatusCompleted {
		c.JSON(http.StatusBadRequest, gin.H{"error": "任务未完成"})
		return
	}

	r, err := h.Storage.Open(c.Request.Context(), sessionID, task.OutputName)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "翻译结果已被删除"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "读取翻译结果失败"})
		return
	}
	defer r.Close()

	filename := "translated_" + task.SourceFile
	c.DataFromReader(http.StatusOK, -1, "application/pdf", r, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", filename),
	})
}

// GetTasksHandler 获取当前用户的所有任务
func (h *Handler) GetTasksHandler(c *gin.Context) {
	sessionID := middleware.GetSessionID(c)
	if sessionID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "无效的会话"})
		return
	}

	taskList := h.Tasks.GetUserTasks(sessionID)

	c.JSON(http.StatusOK, gin.H{
		"tasks": taskList,
		"total": len(taskList),
	})
}

// DeleteTaskHandler 删除已结束的任务及其输出
func (h *Handler) DeleteTaskHandler(c *gin.Context) {
	sessionID := middleware.GetSessionID(c)
	if sessionID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "无效的会话"})
		return
	}

	taskID := c.Param("taskId")
	task, exists := h.Tasks.GetTask(sessionID, taskID)
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "任务不存在或无权访问"})
		return
	}
	if task.Status == models.StatusPending || task.Status == models.StatusProcessing {
		c.JSON(http.StatusConflict, gin.H{"error": "任务仍在处理中"})
		return
	}

	if task.OutputName != "" {
		if err := h.Storage.Delete(c.Request.Context(), sessionID, task.OutputName); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "删除翻译结果失败"})
			return
		}
	}
	h.Tasks.RemoveTask(sessionID, taskID)
	c.JSON(http.StatusOK, gin.H{"message": "任务已删除"})
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

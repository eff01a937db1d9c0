package layout

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// LogLevel 日志级别
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// ParseLogLevel 解析配置中的级别字符串，未知值按 info 处理
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LogLevelDebug
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// PDFLogger PDF处理日志记录器，所有方法对 nil 接收者安全
type PDFLogger struct {
	logFile  *os.File
	logger   *log.Logger
	minLevel LogLevel
	mutex    sync.Mutex
}

// NewPDFLogger 创建输出到 w 的日志记录器
func NewPDFLogger(w io.Writer, level LogLevel) *PDFLogger {
	return &PDFLogger{
		logger:   log.New(w, "", log.LstdFlags),
		minLevel: level,
	}
}

// NewNopLogger 丢弃所有输出
func NewNopLogger() *PDFLogger {
	return NewPDFLogger(io.Discard, LogLevelError+1)
}

// NewFileLogger 在 logDir 下创建日志文件，可选同时输出到控制台
func NewFileLogger(logDir, sessionID string, level LogLevel, enableConsole bool) (*PDFLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("创建日志目录失败: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	logFilePath := filepath.Join(logDir, fmt.Sprintf("pdf_processing_%s_%s.log", sessionID, timestamp))

	logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("创建日志文件失败: %w", err)
	}

	var writer io.Writer = logFile
	if enableConsole {
		writer = io.MultiWriter(logFile, os.Stdout)
	}

	l := NewPDFLogger(writer, level)
	l.logFile = logFile
	l.Info("PDF日志记录器已初始化", map[string]interface{}{
		"会话ID": sessionID,
		"日志文件": logFilePath,
	})
	return l, nil
}

// Debug 记录调试信息
func (l *PDFLogger) Debug(message string, data ...map[string]interface{}) {
	l.log(LogLevelDebug, message, data...)
}

// Info 记录信息
func (l *PDFLogger) Info(message string, data ...map[string]interface{}) {
	l.log(LogLevelInfo, message, data...)
}

// Warn 记录警告
func (l *PDFLogger) Warn(message string, data ...map[string]interface{}) {
	l.log(LogLevelWarn, message, data...)
}

// Error 记录错误
func (l *PDFLogger) Error(message string, err error, data ...map[string]interface{}) {
	logData := make(map[string]interface{})
	if len(data) > 0 {
		for k, v := range data[0] {
			logData[k] = v
		}
	}
	if err != nil {
		logData["错误"] = err.Error()
	}
	l.log(LogLevelError, message, logData)
}

func (l *PDFLogger) log(level LogLevel, message string, data ...map[string]interface{}) {
	if l == nil || level < l.minLevel {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", levelString(level), message)
	if len(data) > 0 && data[0] != nil {
		keys := make([]string, 0, len(data[0]))
		for k := range data[0] {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " | %s: %v", k, data[0][k])
		}
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.logger.Println(b.String())
}

func levelString(level LogLevel) string {
	switch level {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LogPageProcessing 记录页面处理结果
func (l *PDFLogger) LogPageProcessing(stage string, pageNum, totalPages, textBlocks, imageBlocks int) {
	progress := 0.0
	if totalPages > 0 {
		progress = float64(pageNum) / float64(totalPages) * 100
	}
	l.Debug("页面处理完成", map[string]interface{}{
		"阶段":  stage,
		"页码":  pageNum,
		"总页数": totalPages,
		"进度":  fmt.Sprintf("%.1f%%", progress),
		"文本块": textBlocks,
		"图片块": imageBlocks,
	})
}

// LogOperationTiming 记录操作耗时
func (l *PDFLogger) LogOperationTiming(operation string, duration time.Duration, data ...map[string]interface{}) {
	logData := map[string]interface{}{
		"操作": operation,
		"耗时": duration.String(),
	}
	if len(data) > 0 && data[0] != nil {
		for k, v := range data[0] {
			logData[k] = v
		}
	}
	l.Info("操作耗时统计", logData)
}

// Close 关闭日志文件
func (l *PDFLogger) Close() error {
	if l == nil || l.logFile == nil {
		return nil
	}
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.logFile.Close()
}

// GetLogFilePath 获取日志文件路径
func (l *PDFLogger) GetLogFilePath() string {
	if l != nil && l.logFile != nil {
		return l.logFile.Name()
	}
	return ""
}

// truncateString 截断字符串，按 rune 计数
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}

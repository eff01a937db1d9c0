// Command pdftranslate 把 PDF 翻译成目标语言（默认 Hinglish），保留原有版面。
//
//	pdftranslate input.pdf output.pdf [--pages N] [--no-ocr] [--api-key KEY [--save-key]]
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/SilentEigen/pdf-hindi-translator/config"
	"github.com/SilentEigen/pdf-hindi-translator/layout"
	"github.com/SilentEigen/pdf-hindi-translator/ocr"
	"github.com/SilentEigen/pdf-hindi-translator/translator"
)

// options 命令行参数，未设置的项使用配置文件或环境变量中的值
type options struct {
	input    string
	output   string
	pages    int
	noOCR    bool
	apiKey   string
	saveKey  bool
	provider string
	model    string
	target   string
	workers  int
	cacheDir string
	noCache  bool
	force    bool
	assetDir string
	verbose  bool
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func parseArgs(args []string) (*options, error) {
	opts := &options{}
	fs := pflag.NewFlagSet("pdftranslate", pflag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "用法: pdftranslate [flags] input.pdf output.pdf")
		fs.PrintDefaults()
	}
	fs.IntVar(&opts.pages, "pages", 0, "最多转换的页数（默认全部）")
	fs.BoolVar(&opts.noOCR, "no-ocr", false, "不识别图片中的文字")
	fs.StringVar(&opts.apiKey, "api-key", "", "API Key（默认读取 GOOGLE_API_KEY）")
	fs.BoolVar(&opts.saveKey, "save-key", false, "把 --api-key 保存到当前目录的 .env")
	fs.StringVar(&opts.provider, "provider", "", "翻译提供商: gemini, openai, deepseek, claude, ollama")
	fs.StringVar(&opts.model, "model", "", "模型名称")
	fs.StringVar(&opts.target, "target", "", "目标语言（默认 Hinglish）")
	fs.IntVar(&opts.workers, "workers", 0, "并发翻译请求数")
	fs.StringVar(&opts.cacheDir, "cache-dir", "", "翻译缓存目录")
	fs.BoolVar(&opts.noCache, "no-cache", false, "不使用翻译缓存")
	fs.BoolVar(&opts.force, "force", false, "忽略已有缓存重新翻译")
	fs.StringVar(&opts.assetDir, "assets", "", "导出提取到的图片到该目录")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "输出调试日志")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return nil, fmt.Errorf("需要输入和输出两个文件路径")
	}
	if opts.pages < 0 {
		return nil, fmt.Errorf("--pages 不能为负数")
	}
	if opts.saveKey && opts.apiKey == "" {
		return nil, fmt.Errorf("--save-key 需要同时提供 --api-key")
	}
	opts.input = fs.Arg(0)
	opts.output = fs.Arg(1)
	return opts, nil
}

// applyOptions 命令行参数覆盖配置
func applyOptions(cfg *config.Config, opts *options) {
	if opts.apiKey != "" {
		cfg.Translator.APIKey = opts.apiKey
	}
	if opts.provider != "" && opts.provider != cfg.Translator.Provider {
		cfg.Translator.Provider = opts.provider
		cfg.Translator.APIURL = ""
		cfg.Translator.Model = ""
	}
	if opts.model != "" {
		cfg.Translator.Model = opts.model
	}
	if opts.target != "" {
		cfg.Translator.TargetLanguage = opts.target
	}
	if opts.workers > 0 {
		cfg.Translator.Concurrency = opts.workers
	}
	if opts.pages > 0 {
		cfg.Extract.MaxPages = opts.pages
	}
	if opts.noOCR {
		cfg.Extract.OCR = false
	}
	if opts.cacheDir != "" {
		cfg.Cache.Dir = opts.cacheDir
	}
	if opts.noCache {
		cfg.Cache.Enabled = false
	}
	if opts.assetDir != "" {
		cfg.Extract.AssetDir = opts.assetDir
	}
	if opts.verbose {
		cfg.Log.Level = "debug"
	}
}

func run(args []string, stdout io.Writer) error {
	opts, err := parseArgs(args)
	if err != nil {
		return err
	}

	if opts.saveKey {
		path, err := config.SaveAPIKey(".", opts.apiKey)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "API Key 已保存到 %s\n", path)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}
	applyOptions(cfg, opts)

	provider := translator.ProviderConfigFrom(cfg.Translator)
	if provider.Type.NeedsAPIKey() && provider.APIKey == "" {
		return fmt.Errorf("未找到 API Key，请通过 --api-key 提供，或设置 GOOGLE_API_KEY")
	}

	// 命令行只把日志打到终端
	logger := layout.NewPDFLogger(os.Stderr, layout.ParseLogLevel(cfg.Log.Level))

	var cache *translator.Cache
	if cfg.Cache.Enabled {
		cache, err = translator.NewCache(cfg.Cache.Dir)
		if err != nil {
			return err
		}
		if opts.force {
			cache.DisableCache()
		}
	}

	client, err := translator.NewClientFromConfig(provider, cfg.Translator, cache, "")
	if err != nil {
		return err
	}

	fonts, err := translator.NewFontSetFrom(cfg.Render, cfg.Translator.TargetLanguage)
	if err != nil {
		log.Printf("字体加载失败，只使用内置字体: %v", err)
	}

	tOpts := translator.TranslateOptions{
		MaxPages:    cfg.Extract.MaxPages,
		Workers:     cfg.Render.Workers,
		Concurrency: cfg.Translator.Concurrency,
		AssetDir:    cfg.Extract.AssetDir,
		Fit:         translator.FitParamsFrom(cfg.Render),
	}
	if cfg.Extract.OCR {
		recognizer, err := ocr.New(cfg.Extract.OCRLanguage)
		if err != nil {
			log.Printf("OCR 不可用，跳过图片文字识别: %v", err)
		} else {
			defer recognizer.Close()
			tOpts.OCR = recognizer
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(stdout, "正在处理 %s（%s → %s）...\n", filepath.Base(opts.input), provider.Type, client.TargetLanguage)
	reporter := newProgressReporter(stdout)
	dt := translator.NewDocumentTranslator(client, fonts, logger)
	result, err := dt.TranslateDocument(ctx, opts.input, opts.output, tOpts, reporter.update)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "完成: %s（%d/%d 页，%d 段文本，%d 处字号溢出，耗时 %v）\n",
		result.OutputPath, result.Pages, result.TotalPages, result.UniqueTexts, result.Overflows, result.Duration.Round(time.Millisecond))
	if len(result.SkippedPages) > 0 {
		fmt.Fprintf(stdout, "跳过的页面: %v\n", result.SkippedPages)
	}
	return nil
}

package translator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/SilentEigen/pdf-hindi-translator/layout"
)

// 各阶段在总进度中的区间
const (
	progressExtracted  = 0.2
	progressTranslated = 0.8
	progressRendered   = 0.95
)

// TranslateOptions 单次文档翻译的参数
type TranslateOptions struct {
	// MaxPages 最多处理的页数，<=0 表示全部
	MaxPages int
	// OCR 图片文字识别，nil 表示不识别
	OCR layout.TextRecognizer
	// AssetDir 非空时导出提取到的图片
	AssetDir string
	// Workers 页面提取与渲染的并发数
	Workers int
	// Concurrency 同时进行的翻译请求数
	Concurrency int
	Fit         layout.FitParams
}

// Result 翻译结果统计
type Result struct {
	OutputPath   string
	TotalPages   int
	Pages        int
	UniqueTexts  int
	Overflows    int
	SkippedPages []int
	Duration     time.Duration
}

// DocumentTranslator 文档翻译流水线：提取、去重翻译、渲染、组装
type DocumentTranslator struct {
	Translate layout.TranslateFunc
	Fonts     *layout.FontSet
	Logger    *layout.PDFLogger
}

// NewDocumentTranslator 创建文档翻译器
func NewDocumentTranslator(client *TranslatorClient, fonts *layout.FontSet, logger *layout.PDFLogger) *DocumentTranslator {
	if logger == nil {
		logger = layout.NewNopLogger()
	}
	client.WithLogger(logger)
	return &DocumentTranslator{
		Translate: client.Translate,
		Fonts:     fonts,
		Logger:    logger,
	}
}

// TranslateDocument 翻译文档并写入 outputPath
func (dt *DocumentTranslator) TranslateDocument(ctx context.Context, inputPath, outputPath string, opts TranslateOptions, progressCallback func(float64)) (*Result, error) {
	start := time.Now()
	progress := func(p float64) {
		if progressCallback != nil {
			progressCallback(p)
		}
	}
	log.Printf("开始翻译文档: %s", inputPath)

	if err := ValidateDocument(inputPath); err != nil {
		return nil, fmt.Errorf("文档验证失败: %w", err)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	doc, err := layout.Extract(ctx, inputPath, layout.ExtractOptions{
		MaxPages: opts.MaxPages,
		Workers:  workers,
		OCR:      opts.OCR,
		AssetDir: opts.AssetDir,
		Logger:   dt.Logger,
	})
	if err != nil {
		return nil, err
	}
	if len(doc.Pages) == 0 {
		return nil, layout.ErrNoContent
	}
	progress(progressExtracted)

	index := layout.CollectUniqueTexts(doc)
	log.Printf("提取完成: %d 页，%d 段唯一文本", len(doc.Pages), index.Len())

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	tm := layout.BuildTranslationMap(ctx, index, concurrency, dt.Translate, func(done, total int) {
		progress(stageProgress(progressExtracted, progressTranslated, done, total))
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	progress(progressTranslated)

	rendered, skipped, err := dt.renderPages(ctx, doc, tm, opts.Fit, workers, progress)
	if err != nil {
		return nil, err
	}
	if len(rendered) == 0 {
		return nil, layout.ErrNoContent
	}
	progress(progressRendered)

	assembler := layout.NewAssembler(dt.Fonts, dt.Logger)
	if err := assembler.AssembleFile(outputPath, rendered); err != nil {
		return nil, err
	}
	progress(1.0)

	result := &Result{
		OutputPath:   outputPath,
		TotalPages:   doc.TotalPages,
		Pages:        len(rendered),
		UniqueTexts:  index.Len(),
		SkippedPages: mergeSkipped(missingPages(doc, opts.MaxPages), skipped),
		Duration:     time.Since(start),
	}
	for _, page := range rendered {
		for _, t := range page.Texts {
			if t.Fit.Overflow {
				result.Overflows++
			}
		}
	}
	log.Printf("翻译完成: %s (%d 页，耗时 %v)", filepath.Base(outputPath), result.Pages, result.Duration.Round(time.Millisecond))
	return result, nil
}

// renderPages 并发渲染，结果按页序排列；单页失败只跳过该页
func (dt *DocumentTranslator) renderPages(ctx context.Context, doc *layout.Document, tm layout.TranslationMap, params layout.FitParams, workers int, progress func(float64)) ([]*layout.RenderedPage, []int, error) {
	renderer := layout.NewRenderer(dt.Fonts, params, dt.Logger)
	slots := make([]*layout.RenderedPage, len(doc.Pages))
	total := len(doc.Pages)

	var (
		mu       sync.Mutex
		finished int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range doc.Pages {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			page, err := renderer.Render(doc.Pages[i], tm)

			mu.Lock()
			finished++
			progress(stageProgress(progressTranslated, progressRendered, finished, total))
			mu.Unlock()

			if err != nil {
				dt.Logger.Error("页面渲染失败，跳过该页", err, map[string]interface{}{
					"页码": doc.Pages[i].Index,
				})
				return nil
			}
			slots[i] = page
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var pages []*layout.RenderedPage
	var skipped []int
	for i, p := range slots {
		if p == nil {
			skipped = append(skipped, doc.Pages[i].Index)
			continue
		}
		pages = append(pages, p)
	}
	return pages, skipped, nil
}

// stageProgress 阶段内进度，结果落在 [from, to] 内
func stageProgress(from, to float64, done, total int) float64 {
	if total <= 0 || done >= total {
		return to
	}
	return math.Min(from+(to-from)*float64(done)/float64(total), to)
}

// missingPages 提取阶段失败而缺失的页码
func missingPages(doc *layout.Document, maxPages int) []int {
	want := doc.TotalPages
	if maxPages > 0 && maxPages < want {
		want = maxPages
	}
	present := make(map[int]bool, len(doc.Pages))
	for _, p := range doc.Pages {
		present[p.Index] = true
	}
	var missing []int
	for i := 1; i <= want; i++ {
		if !present[i] {
			missing = append(missing, i)
		}
	}
	return missing
}

func mergeSkipped(a, b []int) []int {
	out := append(append([]int(nil), a...), b...)
	sort.Ints(out)
	return out
}

// IsFatal 错误是否导致整个任务失败
func IsFatal(err error) bool {
	var pdfErr *layout.PDFError
	if errors.As(err, &pdfErr) {
		return pdfErr.Fatal()
	}
	return err != nil
}

package layout

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	lpdf "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/sync/errgroup"
)

// TextRecognizer 图片文字识别，失败时返回空串
type TextRecognizer interface {
	Recognize(image []byte) string
}

// ExtractOptions 提取参数
type ExtractOptions struct {
	// MaxPages 最多处理的页数，<=0 表示全部
	MaxPages int
	// Workers 并发解析的页数，<=0 时使用 CPU 数
	Workers int
	// OCR 可选的图片文字识别
	OCR TextRecognizer
	// AssetDir 非空时把提取出的图片写入该目录
	AssetDir string
	Blocks   BlockConfig
	Logger   *PDFLogger
}

// ValidatePDF 验证是否为有效的 PDF 文件
func ValidatePDF(filePath string) error {
	ext := strings.ToLower(filepath.Ext(filePath))
	if ext != ".pdf" {
		return fmt.Errorf("文件必须是 PDF 格式")
	}

	file, _, err := openReader(filePath)
	if err != nil {
		return NewPDFError(ErrDocumentOpen, "无效的 PDF 文件", err)
	}
	file.Close()
	return nil
}

// CheckStructure 使用 pdfcpu 以宽松模式校验文件结构
func CheckStructure(filePath string) error {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.ValidateFile(filePath, conf); err != nil {
		return fmt.Errorf("pdfcpu验证失败: %w", err)
	}
	return nil
}

// GetPDFPageCount 获取 PDF 页数
func GetPDFPageCount(filePath string) (int, error) {
	file, reader, err := openReader(filePath)
	if err != nil {
		return 0, NewPDFError(ErrDocumentOpen, "无法打开 PDF 文件", err)
	}
	defer file.Close()
	return reader.NumPage(), nil
}

// openReader 打开 PDF；解析库在损坏文件上可能 panic，统一转换为错误
func openReader(path string) (file *os.File, reader *lpdf.Reader, err error) {
	defer func() {
		if r := recover(); r != nil {
			if file != nil {
				file.Close()
			}
			file, reader, err = nil, nil, fmt.Errorf("解析 PDF 结构失败: %v", r)
		}
	}()

	file, reader, err = lpdf.Open(path)
	if err != nil {
		if strings.Contains(err.Error(), "stream not present") {
			return nil, nil, fmt.Errorf("PDF文件格式不受支持或已损坏，可能使用了特殊编码、加密或压缩方式: %w", err)
		}
		return nil, nil, err
	}
	return file, reader, nil
}

// readerPool 每个并发任务独占一个 Reader
type readerPool struct {
	path  string
	mu    sync.Mutex
	idle  []*lpdf.Reader
	files []*os.File
}

func (p *readerPool) get() (*lpdf.Reader, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n := len(p.idle); n > 0 {
		r := p.idle[n-1]
		p.idle = p.idle[:n-1]
		return r, nil
	}
	file, reader, err := openReader(p.path)
	if err != nil {
		return nil, err
	}
	p.files = append(p.files, file)
	return reader, nil
}

func (p *readerPool) put(r *lpdf.Reader) {
	p.mu.Lock()
	p.idle = append(p.idle, r)
	p.mu.Unlock()
}

func (p *readerPool) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, f := range p.files {
		f.Close()
	}
	p.files = nil
	p.idle = nil
}

// extraction 单次提取的共享只读状态
type extraction struct {
	path    string
	opts    ExtractOptions
	logger  *PDFLogger
	readers *readerPool
	images  *PDFImageExtractor
	widths  Measurer
	builder *blockBuilder
	// interpret 主解释器，为空时使用 interpretPage
	interpret func(pageNum int) (*Page, error)

	fallbackOnce sync.Once
	fallback     *fallbackParser
	fallbackErr  error
}

// Extract 解析 PDF 的版面结构。文件无法打开时返回 ErrDocumentOpen；
// 单页失败只记录日志并跳过该页。
func Extract(ctx context.Context, path string, opts ExtractOptions) (*Document, error) {
	logger := opts.Logger
	if logger == nil {
		logger = NewNopLogger()
	}
	start := time.Now()

	file, reader, err := openReader(path)
	if err != nil {
		return nil, NewPDFError(ErrDocumentOpen, fmt.Sprintf("无法打开 PDF 文件 %s", filepath.Base(path)), err)
	}
	pool := &readerPool{path: path, idle: []*lpdf.Reader{reader}, files: []*os.File{file}}
	defer pool.close()

	total := reader.NumPage()
	if total <= 0 {
		return nil, NewPDFError(ErrDocumentOpen, "PDF 没有页面", nil)
	}
	count := total
	if opts.MaxPages > 0 && opts.MaxPages < count {
		count = opts.MaxPages
	}

	config := opts.Blocks
	if config == (BlockConfig{}) {
		config = DefaultBlockConfig()
	}
	x := &extraction{
		path:    path,
		opts:    opts,
		logger:  logger,
		readers: pool,
		widths:  NewGofpdfMeasurer(&FontSet{}).ForFamily(CoreFontFamily),
		builder: newBlockBuilder(config),
	}
	if err := CheckStructure(path); err != nil {
		logger.Warn("PDF结构校验未通过，继续提取", map[string]interface{}{
			"错误": err.Error(),
		})
	}
	x.images, err = NewPDFImageExtractor(path, logger)
	if err != nil {
		logger.Warn("图片提取器初始化失败，图片将保留位置但没有数据", map[string]interface{}{
			"错误": err.Error(),
		})
		x.images = nil
	}

	logger.Info("开始提取PDF版面", map[string]interface{}{
		"文件":   filepath.Base(path),
		"总页数":  total,
		"处理页数": count,
	})

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	pages := make([]*Page, count)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < count; i++ {
		pageNum := i + 1
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			page, err := x.extractPage(pageNum)
			if err != nil {
				logger.Error("页面提取失败，跳过该页", err, map[string]interface{}{
					"页码": pageNum,
				})
				return nil
			}
			pages[pageNum-1] = page
			logger.LogPageProcessing("extract", pageNum, count, len(page.TextBlocks()), len(page.ImageBlocks()))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	doc := &Document{Path: path, TotalPages: total}
	for _, p := range pages {
		if p != nil {
			doc.Pages = append(doc.Pages, *p)
		}
	}

	logger.LogOperationTiming("extract", time.Since(start), map[string]interface{}{
		"成功页数": len(doc.Pages),
	})
	return doc, nil
}

// extractPage 解析单页；主解释器失败时尝试备用解析器
func (x *extraction) extractPage(pageNum int) (*Page, error) {
	interpret := x.interpret
	if interpret == nil {
		interpret = x.interpretPage
	}
	page, err := interpret(pageNum)
	if err == nil {
		return page, nil
	}

	fallbackPage, fbErr := x.fallbackPage(pageNum)
	if fbErr != nil || len(fallbackPage.Blocks) == 0 {
		return nil, NewPageError(ErrPageExtraction, pageNum, "页面解析失败", err)
	}
	x.logger.Warn("主解析器失败，使用备用解析器结果", map[string]interface{}{
		"页码": pageNum,
		"错误": err.Error(),
	})
	return fallbackPage, nil
}

func (x *extraction) interpretPage(pageNum int) (page *Page, err error) {
	reader, err := x.readers.get()
	if err != nil {
		return nil, err
	}
	defer x.readers.put(reader)

	defer func() {
		if r := recover(); r != nil {
			page, err = nil, fmt.Errorf("内容流解析崩溃: %v", r)
		}
	}()

	p := reader.Page(pageNum)
	if p.V.IsNull() {
		return nil, fmt.Errorf("页面对象为空")
	}
	box, ok := pageBoxOf(p.V)
	if !ok {
		return nil, fmt.Errorf("页面缺少有效的 MediaBox")
	}

	ci := newContentInterpreter(x.widths)
	ci.runPage(p)

	runs := box.runsFromGlyphs(ci.runs)
	images := make([]*ImageBlock, 0, len(ci.images))
	seqs := make([]int, 0, len(ci.images))
	for _, placement := range ci.images {
		img := box.imageBlock(placement)
		if img.BBox.IsEmpty() {
			continue
		}
		images = append(images, img)
		seqs = append(seqs, placement.Seq)
	}
	x.loadImages(pageNum, images)

	return &Page{
		Index:  pageNum,
		Width:  box.Width(),
		Height: box.Height(),
		Blocks: x.builder.Build(runs, images, seqs),
	}, nil
}

func (x *extraction) fallbackPage(pageNum int) (*Page, error) {
	x.fallbackOnce.Do(func() {
		x.fallback, x.fallbackErr = openFallbackParser(x.path)
	})
	if x.fallbackErr != nil {
		return nil, x.fallbackErr
	}
	box, runs, err := x.fallback.page(pageNum, x.widths)
	if err != nil {
		return nil, err
	}
	return &Page{
		Index:  pageNum,
		Width:  box.Width(),
		Height: box.Height(),
		Blocks: x.builder.Build(runs, nil, nil),
	}, nil
}

// loadImages 填充图片数据、OCR 文本，并按需导出资源文件
func (x *extraction) loadImages(pageNum int, images []*ImageBlock) {
	if x.images == nil || len(images) == 0 {
		return
	}

	type loaded struct {
		data []byte
		ext  string
		ocr  string
	}
	cache := make(map[string]loaded)
	for _, img := range images {
		entry, ok := cache[img.Name]
		if !ok {
			data, ext, err := x.images.ImageData(pageNum, img.Name)
			if err != nil {
				x.logger.Debug("图片数据不可用", map[string]interface{}{
					"页码": pageNum,
					"名称": img.Name,
					"错误": err.Error(),
				})
			}
			entry = loaded{data: data, ext: ext}
			if x.opts.OCR != nil && len(data) > 0 {
				entry.ocr = strings.TrimSpace(x.opts.OCR.Recognize(data))
			}
			cache[img.Name] = entry

			if x.opts.AssetDir != "" && len(data) > 0 {
				saved := &ImageBlock{Data: data, Ext: ext, Name: img.Name}
				if path, err := SaveAsset(x.opts.AssetDir, pageNum, saved); err != nil {
					x.logger.Warn("导出图片失败", map[string]interface{}{"错误": err.Error()})
				} else {
					x.logger.Debug("导出图片", map[string]interface{}{"路径": path})
				}
			}
		}
		img.Data = entry.data
		img.Ext = entry.ext
		img.OCRText = entry.ocr
	}
}

// pageBoxOf CropBox 优先，其次 MediaBox，沿 Parent 链继承
func pageBoxOf(v lpdf.Value) (pageBox, bool) {
	for _, key := range []string{"CropBox", "MediaBox"} {
		for node, depth := v, 0; !node.IsNull() && depth < 32; node, depth = node.Key("Parent"), depth+1 {
			arr := node.Key(key)
			if arr.Kind() != lpdf.Array || arr.Len() != 4 {
				continue
			}
			var c [4]float64
			valid := true
			for i := range c {
				f, ok := number(arr.Index(i))
				if !ok {
					valid = false
					break
				}
				c[i] = f
			}
			if !valid {
				continue
			}
			r := NewRect(c[0], c[1], c[2], c[3])
			if r.IsEmpty() {
				continue
			}
			return pageBox{X0: r.X0, Y0: r.Y0, X1: r.X1, Y1: r.Y1}, true
		}
	}
	return pageBox{}, false
}

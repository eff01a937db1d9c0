package layout

import (
	"fmt"
)

// OpKind 绘制操作类型
type OpKind int

const (
	OpImage OpKind = iota
	OpFillRect
	OpText
)

// DrawOp 目标坐标系（左下角原点，y 向上）下的一次绘制操作
type DrawOp struct {
	Kind OpKind

	// OpImage / OpFillRect
	Rect TargetRect
	Data []byte
	Ext  string
	Name string

	// OpFillRect / OpText
	Color RGB

	// OpText：(X, Y) 为基线起点
	X, Y     float64
	Text     string
	Family   string
	Style    FontStyle
	FontSize float64
}

// RenderedText 单个文本块的渲染结果
type RenderedText struct {
	Block    int
	Original string
	Text     string
	Fit      FitResult
}

// RenderedPage 渲染后的页面：尺寸与源页面相同，操作按绘制顺序排列
type RenderedPage struct {
	Index  int
	Width  float64
	Height float64
	Ops    []DrawOp
	Texts  []RenderedText
	// SkippedBlocks 渲染失败被跳过的块下标
	SkippedBlocks []int
}

// Renderer 保持版面的渲染器
type Renderer struct {
	Fonts    *FontSet
	Measurer *GofpdfMeasurer
	Params   FitParams
	Logger   *PDFLogger
}

// NewRenderer 创建渲染器
func NewRenderer(fonts *FontSet, params FitParams, logger *PDFLogger) *Renderer {
	if fonts == nil {
		fonts = &FontSet{}
	}
	if logger == nil {
		logger = NewNopLogger()
	}
	return &Renderer{
		Fonts:    fonts,
		Measurer: NewGofpdfMeasurer(fonts),
		Params:   params.normalized(),
		Logger:   logger,
	}
}

// Render 渲染单个页面：先放置图片，再逐块擦除背景并写入译文。
// 单个块失败只跳过该块。
func (r *Renderer) Render(page Page, tm TranslationMap) (*RenderedPage, error) {
	if !(page.Width > 0) || !(page.Height > 0) {
		return nil, NewPageError(ErrPageRender, page.Index, fmt.Sprintf("无效的页面尺寸 %vx%v", page.Width, page.Height), nil)
	}

	out := &RenderedPage{
		Index:  page.Index,
		Width:  page.Width,
		Height: page.Height,
	}

	for i, block := range page.Blocks {
		img, ok := block.(*ImageBlock)
		if !ok {
			continue
		}
		if !img.HasData() {
			r.Logger.Debug("图片数据缺失，跳过", map[string]interface{}{
				"页码": page.Index,
				"块":  i,
				"名称": img.Name,
			})
			continue
		}
		out.Ops = append(out.Ops, DrawOp{
			Kind: OpImage,
			Rect: img.BBox.ToTarget(page.Height),
			Data: img.Data,
			Ext:  img.Ext,
			Name: fmt.Sprintf("p%d_b%d", page.Index, i),
		})
	}

	for i, block := range page.Blocks {
		tb, ok := block.(*TextBlock)
		if !ok {
			continue
		}
		ops, rendered, err := r.renderTextBlock(page, i, tb, tm)
		if err != nil {
			out.SkippedBlocks = append(out.SkippedBlocks, i)
			r.Logger.Warn("文本块渲染失败，跳过", map[string]interface{}{
				"页码": page.Index,
				"块":  i,
				"错误": err.Error(),
			})
			continue
		}
		if rendered == nil {
			continue
		}
		out.Ops = append(out.Ops, ops...)
		out.Texts = append(out.Texts, *rendered)
	}

	return out, nil
}

func (r *Renderer) renderTextBlock(page Page, index int, tb *TextBlock, tm TranslationMap) (ops []DrawOp, rendered *RenderedText, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			ops, rendered = nil, nil
			err = fmt.Errorf("渲染过程 panic: %v", rec)
		}
	}()

	original := CanonicalText(tb)
	if original == "" {
		return nil, nil, nil
	}
	first, ok := tb.FirstSpan()
	if !ok {
		return nil, nil, nil
	}

	text := tm.Lookup(original)
	style := ResolveFontStyle(first.FontName)
	color := DecodePacked(first.Color)
	family := r.Fonts.FamilyFor(text)
	box := tb.BBox.ToTarget(page.Height)

	fit, err := FitText(text, box.W, box.H, first.FontSize, style, r.Measurer.ForFamily(family), r.Params)
	if err != nil {
		return nil, nil, err
	}
	if fit.Overflow {
		r.Logger.Warn("缩放到最小字号后仍溢出，照常绘制", map[string]interface{}{
			"类型":   ErrFontFitOverflow,
			"页码":   page.Index,
			"块":    index,
			"字号":   fmt.Sprintf("%.2f", fit.FontSize),
			"行数":   len(fit.Lines),
			"所需高度": fmt.Sprintf("%.2f", fit.Height()),
			"块高度":  fmt.Sprintf("%.2f", box.H),
		})
	}

	ops = append(ops, DrawOp{
		Kind:  OpFillRect,
		Rect:  box,
		Color: White,
	})

	baseline := TransformY(tb.BBox.Y0, page.Height) - fit.FontSize
	for i, line := range fit.Lines {
		if line == "" {
			continue
		}
		ops = append(ops, DrawOp{
			Kind:     OpText,
			X:        tb.BBox.X0,
			Y:        baseline - float64(i)*fit.Leading,
			Text:     line,
			Family:   family,
			Style:    style,
			FontSize: fit.FontSize,
			Color:    color,
		})
	}

	return ops, &RenderedText{
		Block:    index,
		Original: original,
		Text:     text,
		Fit:      fit,
	}, nil
}

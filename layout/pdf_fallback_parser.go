package layout

import (
	"fmt"

	dslipakpdf "github.com/dslipak/pdf"
)

// fallbackParser 主解释器无法处理某页时，用 dslipak/pdf 的逐字输出重建该页。
// 颜色信息不可用，统一为黑色。
type fallbackParser struct {
	reader *dslipakpdf.Reader
}

func openFallbackParser(path string) (*fallbackParser, error) {
	reader, err := dslipakpdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dslipak/pdf打开失败: %w", err)
	}
	// dslipak/pdf的Reader没有Close方法
	return &fallbackParser{reader: reader}, nil
}

// page 返回页面可见区域与文字片段；pageNum 从 1 开始。
// 字体缺少 /Widths 时 dslipak/pdf 给出的宽度为 0 且字形不前进，此时用 est 估算宽度并顺延位置。
func (fp *fallbackParser) page(pageNum int, est Measurer) (box pageBox, runs []textRun, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dslipak/pdf解析第 %d 页崩溃: %v", pageNum, r)
		}
	}()

	if pageNum < 1 || pageNum > fp.reader.NumPage() {
		return pageBox{}, nil, fmt.Errorf("页码越界: %d", pageNum)
	}
	p := fp.reader.Page(pageNum)
	if p.V.IsNull() {
		return pageBox{}, nil, fmt.Errorf("第 %d 页为空", pageNum)
	}

	box, ok := fallbackPageBox(p.V)
	if !ok {
		return pageBox{}, nil, fmt.Errorf("第 %d 页缺少 MediaBox", pageNum)
	}

	content := p.Content()
	runs = make([]textRun, 0, len(content.Text))
	var (
		prevX, prevY float64
		prevWidth    float64
		shift        float64
		havePrev     bool
	)
	for i, t := range content.Text {
		if t.S == "" || t.FontSize <= 0 {
			continue
		}
		name := stripSubsetPrefix(t.Font)
		width := t.W
		if width <= 0 && est != nil {
			width = est.StringWidth(t.S, ResolveFontStyle(name), t.FontSize)
		}

		if havePrev && t.W <= 0 && t.X == prevX && t.Y == prevY {
			shift += prevWidth
		} else {
			shift = 0
		}
		prevX, prevY, prevWidth, havePrev = t.X, t.Y, width, true

		x, y := box.toPageSpace(t.X+shift, t.Y)
		runs = append(runs, textRun{
			Text:     t.S,
			X:        x,
			Baseline: y,
			Width:    width,
			Size:     t.FontSize,
			Font:     name,
			Flags:    FontNameFlags(name),
			Seq:      i,
		})
	}
	return box, runs, nil
}

// fallbackPageBox CropBox 优先，其次 MediaBox，沿 Parent 链继承
func fallbackPageBox(v dslipakpdf.Value) (pageBox, bool) {
	for _, key := range []string{"CropBox", "MediaBox"} {
		for node, depth := v, 0; !node.IsNull() && depth < 32; node, depth = node.Key("Parent"), depth+1 {
			arr := node.Key(key)
			if arr.Kind() != dslipakpdf.Array || arr.Len() != 4 {
				continue
			}
			var c [4]float64
			for i := range c {
				c[i] = arr.Index(i).Float64()
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

package layout

import (
	"sync"

	"github.com/jung-kurt/gofpdf"
)

// GofpdfMeasurer 使用 gofpdf 字体度量计算字符串宽度（单位 pt）。
// 内部用 sync.Pool 复用 gofpdf 实例，可被多个渲染协程并发使用。
type GofpdfMeasurer struct {
	fonts *FontSet
	pool  sync.Pool
}

type measureDoc struct {
	pdf *gofpdf.Fpdf
	tr  func(string) string
}

// NewGofpdfMeasurer 创建度量器
func NewGofpdfMeasurer(fonts *FontSet) *GofpdfMeasurer {
	m := &GofpdfMeasurer{fonts: fonts}
	m.pool.New = func() interface{} {
		pdf := gofpdf.New("P", "pt", "A4", "")
		fonts.Register(pdf)
		return &measureDoc{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	}
	return m
}

// Width 指定字体族下的字符串宽度
func (m *GofpdfMeasurer) Width(family string, style FontStyle, size float64, text string) float64 {
	doc := m.pool.Get().(*measureDoc)
	defer m.pool.Put(doc)

	doc.pdf.SetFont(family, style.GofpdfStyle(), size)
	if family == CoreFontFamily {
		text = doc.tr(text)
	}
	return doc.pdf.GetStringWidth(text)
}

// ForFamily 绑定字体族，返回可供 FitText 使用的 Measurer
func (m *GofpdfMeasurer) ForFamily(family string) Measurer {
	return familyMeasurer{m: m, family: family}
}

type familyMeasurer struct {
	m      *GofpdfMeasurer
	family string
}

func (f familyMeasurer) StringWidth(text string, style FontStyle, size float64) float64 {
	return f.m.Width(f.family, style, size, text)
}

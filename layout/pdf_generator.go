package layout

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"
)

// Assembler 把渲染后的页面按顺序写入一个新的 PDF
type Assembler struct {
	Fonts   *FontSet
	Logger  *PDFLogger
	Creator string
	Title   string
}

// NewAssembler 创建组装器
func NewAssembler(fonts *FontSet, logger *PDFLogger) *Assembler {
	if fonts == nil {
		fonts = &FontSet{}
	}
	if logger == nil {
		logger = NewNopLogger()
	}
	return &Assembler{
		Fonts:   fonts,
		Logger:  logger,
		Creator: "pdf-hindi-translator",
	}
}

// Assemble 依次写入页面，每页保留自己的尺寸。
// 只有后端不可恢复的错误才返回 DocumentAssemblyError。
func (a *Assembler) Assemble(w io.Writer, pages []*RenderedPage) error {
	var ordered []*RenderedPage
	for _, p := range pages {
		if p != nil {
			ordered = append(ordered, p)
		}
	}
	if len(ordered) == 0 {
		return NewPDFError(ErrDocumentAssembly, "没有可写入的页面", ErrNoContent)
	}

	first := ordered[0]
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: first.Width, Ht: first.Height},
	})
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	pdf.SetCreator(a.Creator, true)
	if a.Title != "" {
		pdf.SetTitle(a.Title, true)
	}
	fonts := a.Fonts
	fonts.Register(pdf)
	if pdf.Err() {
		a.Logger.Warn("注册 UTF-8 字体失败，回退到内置字体", map[string]interface{}{
			"字体": a.Fonts.UnicodePath,
			"错误": pdf.Error().Error(),
		})
		pdf.ClearError()
		fonts = &FontSet{}
	}
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for _, page := range ordered {
		pdf.AddPageFormat("P", gofpdf.SizeType{Wd: page.Width, Ht: page.Height})
		for _, op := range page.Ops {
			a.replay(pdf, fonts, page, op, tr)
		}
		if pdf.Err() {
			return NewPageError(ErrDocumentAssembly, page.Index, "写入页面失败", pdf.Error())
		}
	}

	if err := pdf.Output(w); err != nil {
		return NewPDFError(ErrDocumentAssembly, "输出 PDF 失败", err)
	}
	return nil
}

// replay 执行一次绘制操作；gofpdf 使用左上角原点，这里把目标坐标换回去
func (a *Assembler) replay(pdf *gofpdf.Fpdf, fonts *FontSet, page *RenderedPage, op DrawOp, tr func(string) string) {
	switch op.Kind {
	case OpImage:
		a.drawImage(pdf, page, op)
	case OpFillRect:
		r, g, b := op.Color.Bytes()
		pdf.SetFillColor(r, g, b)
		pdf.Rect(op.Rect.X, page.Height-op.Rect.Top(), op.Rect.W, op.Rect.H, "F")
	case OpText:
		family := op.Family
		text := op.Text
		if family == "" || (family == UnicodeFontFamily && !fonts.HasUnicode()) {
			family = CoreFontFamily
		}
		if family == CoreFontFamily {
			text = tr(text)
		}
		r, g, b := op.Color.Bytes()
		pdf.SetTextColor(r, g, b)
		pdf.SetFont(family, op.Style.GofpdfStyle(), op.FontSize)
		pdf.Text(op.X, page.Height-op.Y, text)
	}
}

func (a *Assembler) drawImage(pdf *gofpdf.Fpdf, page *RenderedPage, op DrawOp) {
	imageType, data, err := NormalizeImage(op.Data, op.Ext)
	if err != nil {
		a.Logger.Warn("图片无法解码，跳过", map[string]interface{}{
			"类型": ErrImageDecode,
			"页码": page.Index,
			"名称": op.Name,
			"错误": err.Error(),
		})
		return
	}

	options := gofpdf.ImageOptions{ImageType: imageType}
	pdf.RegisterImageOptionsReader(op.Name, options, bytes.NewReader(data))
	if pdf.Err() {
		a.Logger.Warn("图片注册失败，跳过", map[string]interface{}{
			"类型": ErrImageDecode,
			"页码": page.Index,
			"名称": op.Name,
			"错误": pdf.Error().Error(),
		})
		pdf.ClearError()
		return
	}

	pdf.ImageOptions(op.Name, op.Rect.X, page.Height-op.Rect.Top(), op.Rect.W, op.Rect.H, false, options, 0, "")
}

// AssembleFile 写入文件；先写临时文件再重命名，失败时不会留下不完整的输出
func (a *Assembler) AssembleFile(path string, pages []*RenderedPage) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return NewPDFError(ErrDocumentAssembly, "创建输出目录失败", err)
		}
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return NewPDFError(ErrDocumentAssembly, "创建输出文件失败", err)
	}

	if err := a.Assemble(f, pages); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return NewPDFError(ErrDocumentAssembly, "关闭输出文件失败", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return NewPDFError(ErrDocumentAssembly, fmt.Sprintf("写入 %s 失败", path), err)
	}
	return nil
}

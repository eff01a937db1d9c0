package layout

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFixture 用 gofpdf 生成测试 PDF，build 在每页上绘制内容
func writeFixture(t *testing.T, pages int, build func(pdf *gofpdf.Fpdf, page int)) string {
	t.Helper()
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: 612, Ht: 792},
	})
	pdf.SetAutoPageBreak(false, 0)
	for i := 1; i <= pages; i++ {
		pdf.AddPage()
		build(pdf, i)
	}
	path := filepath.Join(t.TempDir(), "fixture.pdf")
	require.NoError(t, pdf.OutputFileAndClose(path))
	return path
}

func textBlocksOf(p Page) []*TextBlock {
	return p.TextBlocks()
}

func TestExtractTextBlocks(t *testing.T) {
	path := writeFixture(t, 1, func(pdf *gofpdf.Fpdf, _ int) {
		pdf.SetFont("Helvetica", "", 12)
		pdf.Text(100, 100, "Hello World")
		pdf.Text(100, 114, "second line")

		pdf.SetFont("Helvetica", "B", 18)
		pdf.SetTextColor(255, 0, 0)
		pdf.Text(72, 400, "Heading")
	})

	doc, err := Extract(context.Background(), path, ExtractOptions{})
	require.NoError(t, err)
	require.Len(t, doc.Pages, 1)
	assert.Equal(t, 1, doc.TotalPages)

	page := doc.Pages[0]
	assert.Equal(t, 1, page.Index)
	assert.InDelta(t, 612, page.Width, 0.01)
	assert.InDelta(t, 792, page.Height, 0.01)

	blocks := textBlocksOf(page)
	require.Len(t, blocks, 2)

	body := blocks[0]
	assert.Equal(t, "Hello World second line", CanonicalText(body))
	require.Len(t, body.Lines, 2)
	first, ok := body.FirstSpan()
	require.True(t, ok)
	assert.Equal(t, "Helvetica", first.FontName)
	assert.InDelta(t, 12, first.FontSize, 0.01)
	assert.Equal(t, uint32(0), first.Color)
	assert.InDelta(t, 100, body.BBox.X0, 0.5)
	assert.Less(t, body.BBox.Y0, 100.0)
	assert.Greater(t, body.BBox.Y1, 114.0)
	assert.InDelta(t, 100, first.Origin.Y, 0.5)

	heading := blocks[1]
	assert.Equal(t, "Heading", CanonicalText(heading))
	span, _ := heading.FirstSpan()
	assert.Equal(t, "Helvetica-Bold", span.FontName)
	assert.NotZero(t, span.Flags&FlagBold)
	assert.Equal(t, uint32(0xFF0000), span.Color)
	assert.InDelta(t, 18, span.FontSize, 0.01)
}

func TestExtractImages(t *testing.T) {
	data := pngBytes(t, solidImage(16, 16, color.RGBA{R: 10, G: 200, B: 30, A: 255}))
	path := writeFixture(t, 1, func(pdf *gofpdf.Fpdf, _ int) {
		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader("logo", opts, bytes.NewReader(data))
		pdf.ImageOptions("logo", 50, 50, 100, 100, false, opts, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.Text(50, 200, "Caption")
	})

	assets := filepath.Join(t.TempDir(), "assets")
	doc, err := Extract(context.Background(), path, ExtractOptions{AssetDir: assets, OCR: staticRecognizer(" Logo text ")})
	require.NoError(t, err)
	require.Len(t, doc.Pages, 1)

	images := doc.Pages[0].ImageBlocks()
	require.Len(t, images, 1)
	img := images[0]
	assert.InDelta(t, 50, img.BBox.X0, 0.5)
	assert.InDelta(t, 50, img.BBox.Y0, 0.5)
	assert.InDelta(t, 150, img.BBox.X1, 0.5)
	assert.InDelta(t, 150, img.BBox.Y1, 0.5)
	assert.NotEmpty(t, img.Name)
	require.True(t, img.HasData())
	assert.Equal(t, "png", img.Ext)
	assert.Equal(t, "Logo text", img.OCRText)

	entries, err := os.ReadDir(assets)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "page1_"))

	idx := CollectUniqueTexts(doc)
	assert.Equal(t, []string{"Caption", "Logo text"}, idx.Texts())
}

type staticRecognizer string

func (s staticRecognizer) Recognize([]byte) string { return string(s) }

func TestExtractMaxPagesAndOrder(t *testing.T) {
	path := writeFixture(t, 5, func(pdf *gofpdf.Fpdf, page int) {
		pdf.SetFont("Helvetica", "", 12)
		pdf.Text(72, 72, "Page number "+string(rune('0'+page)))
	})

	doc, err := Extract(context.Background(), path, ExtractOptions{MaxPages: 3, Workers: 3})
	require.NoError(t, err)
	assert.Equal(t, 5, doc.TotalPages)
	require.Len(t, doc.Pages, 3)
	for i, p := range doc.Pages {
		assert.Equal(t, i+1, p.Index)
		blocks := p.TextBlocks()
		require.Len(t, blocks, 1)
		assert.Equal(t, "Page number "+string(rune('1'+i)), CanonicalText(blocks[0]))
	}
}

func TestExtractInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("this is not a pdf"), 0644))

	_, err := Extract(context.Background(), path, ExtractOptions{})
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrDocumentOpen))

	_, err = Extract(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"), ExtractOptions{})
	assert.True(t, IsCode(err, ErrDocumentOpen))
}

func TestValidatePDF(t *testing.T) {
	path := writeFixture(t, 2, func(pdf *gofpdf.Fpdf, _ int) {})
	assert.NoError(t, ValidatePDF(path))

	count, err := GetPDFPageCount(path)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	assert.Error(t, ValidatePDF(strings.TrimSuffix(path, ".pdf")+".txt"))
}

func TestCheckStructureRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.pdf")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0644))
	assert.Error(t, CheckStructure(path))
}

// TestRoundTrip 渲染后的 PDF 可以再次提取，文本为译文且页面尺寸不变
func TestRoundTrip(t *testing.T) {
	path := writeFixture(t, 1, func(pdf *gofpdf.Fpdf, _ int) {
		pdf.SetFont("Helvetica", "", 12)
		pdf.Text(100, 110, "Hello World")
	})

	doc, err := Extract(context.Background(), path, ExtractOptions{})
	require.NoError(t, err)

	idx := CollectUniqueTexts(doc)
	require.Equal(t, []string{"Hello World"}, idx.Texts())
	tm := TranslationMap{"Hello World": "Namaste Duniya"}

	rendered, err := NewRenderer(nil, DefaultFitParams, nil).Render(doc.Pages[0], tm)
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "translated.pdf")
	require.NoError(t, NewAssembler(nil, nil).AssembleFile(out, []*RenderedPage{rendered}))

	again, err := Extract(context.Background(), out, ExtractOptions{})
	require.NoError(t, err)
	require.Len(t, again.Pages, 1)
	assert.InDelta(t, 612, again.Pages[0].Width, 0.01)
	assert.InDelta(t, 792, again.Pages[0].Height, 0.01)

	blocks := again.Pages[0].TextBlocks()
	require.Len(t, blocks, 1)
	assert.Equal(t, "Namaste Duniya", CanonicalText(blocks[0]))
	assert.InDelta(t, doc.Pages[0].Blocks[0].Bounds().X0, blocks[0].BBox.X0, 0.5)
}

// writeRawPDF 手工拼装未压缩的 PDF，每个元素是一页的内容流，用于构造 gofpdf 生成不了的损坏页面
func writeRawPDF(t *testing.T, contents []string) string {
	t.Helper()
	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	kids := make([]string, len(contents))
	for i := range contents {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(contents)))
	obj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")
	for i, content := range contents {
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i))
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)

	path := filepath.Join(t.TempDir(), "raw.pdf")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

const helloPageStream = "BT /F1 12 Tf 100 692 Td (Hello World) Tj ET"

// TestExtractSkipsMalformedPage 单页内容流损坏时跳过该页并记录日志，其余页面正常提取
func TestExtractSkipsMalformedPage(t *testing.T) {
	path := writeRawPDF(t, []string{
		helloPageStream,
		"BT /F1 12 Tf 100 692 Td <48656c6c6f Tj ET ] ] >> {",
		helloPageStream,
	})

	var logs bytes.Buffer
	doc, err := Extract(context.Background(), path, ExtractOptions{
		Workers: 2,
		Logger:  NewPDFLogger(&logs, LogLevelDebug),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, doc.TotalPages)

	require.Len(t, doc.Pages, 2)
	assert.Equal(t, 1, doc.Pages[0].Index)
	assert.Equal(t, 3, doc.Pages[1].Index)
	for _, p := range doc.Pages {
		blocks := p.TextBlocks()
		require.Len(t, blocks, 1)
		assert.Equal(t, "Hello World", CanonicalText(blocks[0]))
	}
	assert.Contains(t, logs.String(), "页面提取失败，跳过该页")
}

// TestExtractPageFallsBackToDslipak 主解释器失败时由 dslipak/pdf 重建页面文字
func TestExtractPageFallsBackToDslipak(t *testing.T) {
	path := writeFixture(t, 1, func(pdf *gofpdf.Fpdf, _ int) {
		pdf.SetFont("Helvetica", "", 12)
		pdf.Text(100, 100, "Hello World")
	})

	var logs bytes.Buffer
	x := &extraction{
		path:    path,
		logger:  NewPDFLogger(&logs, LogLevelDebug),
		widths:  NewGofpdfMeasurer(&FontSet{}).ForFamily(CoreFontFamily),
		builder: newBlockBuilder(DefaultBlockConfig()),
		interpret: func(int) (*Page, error) {
			return nil, errors.New("内容流解析崩溃")
		},
	}

	page, err := x.extractPage(1)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Index)
	assert.InDelta(t, 612, page.Width, 0.01)
	assert.InDelta(t, 792, page.Height, 0.01)

	blocks := page.TextBlocks()
	require.Len(t, blocks, 1)
	assert.Equal(t, "Hello World", CanonicalText(blocks[0]))
	first, ok := blocks[0].FirstSpan()
	require.True(t, ok)
	assert.InDelta(t, 12, first.FontSize, 0.01)
	assert.InDelta(t, 100, first.Origin.X, 0.5)
	assert.InDelta(t, 100, first.Origin.Y, 0.5)
	// 字形按估算宽度顺延，而不是堆在同一位置
	assert.Greater(t, blocks[0].BBox.Width(), 50.0)
	assert.Contains(t, logs.String(), "主解析器失败，使用备用解析器结果")
}

// TestExtractPageFallbackAlsoFails 两个解析器都失败时返回 ErrPageExtraction
func TestExtractPageFallbackAlsoFails(t *testing.T) {
	path := writeRawPDF(t, []string{"BT /F1 12 Tf 100 692 Td <48656c6c6f Tj ET ] ] >> {"})
	x := &extraction{
		path:    path,
		logger:  NewNopLogger(),
		widths:  NewGofpdfMeasurer(&FontSet{}).ForFamily(CoreFontFamily),
		builder: newBlockBuilder(DefaultBlockConfig()),
		interpret: func(int) (*Page, error) {
			return nil, errors.New("内容流解析崩溃")
		},
	}

	_, err := x.extractPage(1)
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrPageExtraction))
}

package layout

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func helloPage() Page {
	return Page{
		Index:  1,
		Width:  612,
		Height: 792,
		Blocks: []Block{
			&TextBlock{
				BBox: NewRect(100, 100, 300, 130),
				Lines: []Line{{
					BBox: NewRect(100, 100, 300, 130),
					Spans: []Span{{
						Text:     "Hello World",
						BBox:     NewRect(100, 100, 300, 130),
						FontSize: 12,
						FontName: "Helvetica",
						Color:    0x000000,
					}},
				}},
			},
		},
	}
}

func newTestRenderer(buf *bytes.Buffer) *Renderer {
	return NewRenderer(nil, DefaultFitParams, NewPDFLogger(buf, LogLevelDebug))
}

func opsOfKind(ops []DrawOp, kind OpKind) []DrawOp {
	var out []DrawOp
	for _, op := range ops {
		if op.Kind == kind {
			out = append(out, op)
		}
	}
	return out
}

// TestRenderTranslatedBlock 白底覆盖原块，译文从 (x0, H-y0-size) 开始
func TestRenderTranslatedBlock(t *testing.T) {
	r := newTestRenderer(&bytes.Buffer{})
	page, err := r.Render(helloPage(), TranslationMap{"Hello World": "Namaste Duniya"})
	require.NoError(t, err)

	require.Len(t, page.Ops, 2)
	fill := page.Ops[0]
	assert.Equal(t, OpFillRect, fill.Kind)
	assert.Equal(t, TargetRect{X: 100, Y: 662, W: 200, H: 30}, fill.Rect)
	assert.Equal(t, White, fill.Color)

	text := page.Ops[1]
	assert.Equal(t, OpText, text.Kind)
	assert.Equal(t, "Namaste Duniya", text.Text)
	assert.Equal(t, 12.0, text.FontSize)
	assert.Equal(t, 100.0, text.X)
	assert.InDelta(t, 680, text.Y, 1e-9)
	assert.Equal(t, CoreFontFamily, text.Family)
	assert.Equal(t, StyleRegular, text.Style)
	assert.Equal(t, Black, text.Color)

	require.Len(t, page.Texts, 1)
	assert.Equal(t, "Hello World", page.Texts[0].Original)
	assert.Equal(t, "Namaste Duniya", page.Texts[0].Text)
	assert.Equal(t, 612.0, page.Width)
	assert.Equal(t, 792.0, page.Height)
}

func TestRenderMissingTranslationUsesOriginal(t *testing.T) {
	r := newTestRenderer(&bytes.Buffer{})
	page, err := r.Render(helloPage(), TranslationMap{})
	require.NoError(t, err)

	texts := opsOfKind(page.Ops, OpText)
	require.Len(t, texts, 1)
	assert.Equal(t, "Hello World", texts[0].Text)
}

// TestRenderImagesFirst 图片先于文本绘制，矩形为 (x0, H-y1, w, h)
func TestRenderImagesFirst(t *testing.T) {
	page := helloPage()
	page.Blocks = append(page.Blocks, &ImageBlock{
		BBox: NewRect(50, 50, 150, 150),
		Data: []byte{1, 2, 3},
		Ext:  "png",
		Name: "Im1",
	})

	r := newTestRenderer(&bytes.Buffer{})
	out, err := r.Render(page, nil)
	require.NoError(t, err)

	require.NotEmpty(t, out.Ops)
	img := out.Ops[0]
	assert.Equal(t, OpImage, img.Kind)
	assert.Equal(t, TargetRect{X: 50, Y: 642, W: 100, H: 100}, img.Rect)
	assert.Equal(t, "p1_b1", img.Name)
	assert.Equal(t, []byte{1, 2, 3}, img.Data)
}

func TestRenderSkipsImageWithoutData(t *testing.T) {
	page := Page{Index: 2, Width: 100, Height: 100, Blocks: []Block{
		&ImageBlock{BBox: NewRect(0, 0, 10, 10)},
	}}

	var logs bytes.Buffer
	out, err := newTestRenderer(&logs).Render(page, nil)
	require.NoError(t, err)
	assert.Empty(t, out.Ops)
	assert.Contains(t, logs.String(), "图片数据缺失")
}

func TestRenderSkipsBlankBlocks(t *testing.T) {
	page := helloPage()
	page.Blocks[0].(*TextBlock).Lines[0].Spans[0].Text = "   "

	out, err := newTestRenderer(&bytes.Buffer{}).Render(page, TranslationMap{})
	require.NoError(t, err)
	assert.Empty(t, out.Ops)
	assert.Empty(t, out.Texts)
}

func TestRenderStyleFromFirstSpan(t *testing.T) {
	page := helloPage()
	span := &page.Blocks[0].(*TextBlock).Lines[0].Spans[0]
	span.FontName = "Arial-BoldItalicMT"
	span.Color = 0xFF0000

	out, err := newTestRenderer(&bytes.Buffer{}).Render(page, nil)
	require.NoError(t, err)

	texts := opsOfKind(out.Ops, OpText)
	require.Len(t, texts, 1)
	assert.Equal(t, StyleBoldItalic, texts[0].Style)
	assert.Equal(t, RGB{R: 1}, texts[0].Color)
}

// TestRenderOverflowIsWarned 放不下时仍然绘制并记录警告
func TestRenderOverflowIsWarned(t *testing.T) {
	page := helloPage()
	tb := page.Blocks[0].(*TextBlock)
	tb.BBox = NewRect(100, 100, 130, 104)

	var logs bytes.Buffer
	long := "Yeh ek bahut lamba vakya hai jo is chhote se box mein kabhi fit nahi hoga"
	out, err := newTestRenderer(&logs).Render(page, TranslationMap{"Hello World": long})
	require.NoError(t, err)

	require.Len(t, out.Texts, 1)
	assert.True(t, out.Texts[0].Fit.Overflow)
	assert.NotEmpty(t, opsOfKind(out.Ops, OpText))
	assert.Contains(t, logs.String(), string(ErrFontFitOverflow))
}

// TestRenderMultiLineBaselines 每行基线按行距递减
func TestRenderMultiLineBaselines(t *testing.T) {
	page := helloPage()
	page.Blocks[0].(*TextBlock).BBox = NewRect(100, 100, 160, 200)

	out, err := newTestRenderer(&bytes.Buffer{}).Render(page, TranslationMap{"Hello World": "Namaste Duniya aur sab log"})
	require.NoError(t, err)

	texts := opsOfKind(out.Ops, OpText)
	require.Greater(t, len(texts), 1)
	leading := out.Texts[0].Fit.Leading
	for i := 1; i < len(texts); i++ {
		assert.InDelta(t, texts[i-1].Y-leading, texts[i].Y, 1e-9)
	}
	assert.InDelta(t, 792-100-out.Texts[0].Fit.FontSize, texts[0].Y, 1e-9)
}

func TestRenderInvalidPageSize(t *testing.T) {
	_, err := newTestRenderer(&bytes.Buffer{}).Render(Page{Index: 4}, nil)
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrPageRender))
}

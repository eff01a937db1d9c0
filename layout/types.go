// Package layout 提供 PDF 版面提取、保持版面的重新渲染以及文档组装。
package layout

// BlockKind 块类型
type BlockKind int

const (
	BlockText BlockKind = iota
	BlockImage
)

func (k BlockKind) String() string {
	switch k {
	case BlockText:
		return "text"
	case BlockImage:
		return "image"
	default:
		return "unknown"
	}
}

// 字形标志位，与常见 PDF 提取工具的 span flags 保持一致
const (
	FlagSuperscript = 1 << 0
	FlagItalic      = 1 << 1
	FlagSerif       = 1 << 2
	FlagMonospace   = 1 << 3
	FlagBold        = 1 << 4
)

// Document 提取后的文档，页面按原始顺序排列
type Document struct {
	Path  string
	Pages []Page
	// TotalPages 源文件总页数（截断前）
	TotalPages int
}

// Page 单个页面，宽高定义该页独立的坐标空间
type Page struct {
	Index  int
	Width  float64
	Height float64
	Blocks []Block
}

// Block 文本块或图片块
type Block interface {
	Kind() BlockKind
	Bounds() Rect
	isBlock()
}

// TextBlock 文本块
type TextBlock struct {
	BBox  Rect
	Lines []Line
}

// Line 文本行
type Line struct {
	BBox  Rect
	Spans []Span
}

// Span 共享同一字体、字号、颜色的最小文本片段
type Span struct {
	Text     string
	BBox     Rect
	FontSize float64
	FontName string
	Color    uint32 // 0xRRGGBB
	Flags    int
	Origin   Point
}

// ImageBlock 图片块，Data 为 nil 表示未能定位图片数据
type ImageBlock struct {
	BBox    Rect
	Data    []byte
	Ext     string
	OCRText string
	// Name XObject 资源名
	Name string
}

func (b *TextBlock) Kind() BlockKind { return BlockText }
func (b *TextBlock) Bounds() Rect    { return b.BBox }
func (*TextBlock) isBlock()          {}

func (b *ImageBlock) Kind() BlockKind { return BlockImage }
func (b *ImageBlock) Bounds() Rect    { return b.BBox }
func (*ImageBlock) isBlock()          {}

// HasData 是否带有图片数据
func (b *ImageBlock) HasData() bool {
	return len(b.Data) > 0
}

// FirstSpan 返回块内第一个 span，用作整个块的代表样式
func (b *TextBlock) FirstSpan() (Span, bool) {
	for _, line := range b.Lines {
		if len(line.Spans) > 0 {
			return line.Spans[0], true
		}
	}
	return Span{}, false
}

// TextBlocks 返回页面中的文本块
func (p *Page) TextBlocks() []*TextBlock {
	var blocks []*TextBlock
	for _, b := range p.Blocks {
		if tb, ok := b.(*TextBlock); ok {
			blocks = append(blocks, tb)
		}
	}
	return blocks
}

// ImageBlocks 返回页面中的图片块
func (p *Page) ImageBlocks() []*ImageBlock {
	var blocks []*ImageBlock
	for _, b := range p.Blocks {
		if ib, ok := b.(*ImageBlock); ok {
			blocks = append(blocks, ib)
		}
	}
	return blocks
}

// TranslationMap 规范文本 -> 译文，构建完成后只读
type TranslationMap map[string]string

// Lookup 查找译文，缺失时返回原文
func (m TranslationMap) Lookup(text string) string {
	if m == nil {
		return text
	}
	if translated, ok := m[text]; ok {
		return translated
	}
	return text
}

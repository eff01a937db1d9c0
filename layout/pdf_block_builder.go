package layout

import (
	"math"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// BlockConfig 文本块分组参数，均为相对行高或字号的倍数
type BlockConfig struct {
	// LineHeightTolerance 基线差小于 行高×该值 视为同一行
	LineHeightTolerance float64
	// HorizontalGapThreshold 同行片段间距或相邻行错位超过 字号×该值 时拆分
	HorizontalGapThreshold float64
	// VerticalGapThreshold 行间空白超过 平均行高×该值 时开始新块
	VerticalGapThreshold float64
	// SpaceThreshold 同行片段间距超过 字号×该值 时补一个空格
	SpaceThreshold float64
}

// DefaultBlockConfig 默认分组参数
func DefaultBlockConfig() BlockConfig {
	return BlockConfig{
		LineHeightTolerance:    0.5,
		HorizontalGapThreshold: 3.0,
		VerticalGapThreshold:   1.5,
		SpaceThreshold:         0.15,
	}
}

// textRun 页面坐标系（左上原点，y 向下）中的一段文字
type textRun struct {
	Text     string
	X        float64
	Baseline float64
	Width    float64
	Size     float64
	Font     string
	Color    uint32
	Flags    int
	Ascent   float64
	Descent  float64
	Seq      int
}

func (r textRun) bbox() Rect {
	ascent, descent := r.Ascent, r.Descent
	if ascent <= 0 {
		ascent = defaultAscent
	}
	if descent <= 0 {
		descent = defaultDescent
	}
	return NewRect(r.X, r.Baseline-ascent*r.Size, r.X+r.Width, r.Baseline+descent*r.Size)
}

func (r textRun) sameStyle(o textRun) bool {
	return r.Font == o.Font && r.Color == o.Color && r.Flags == o.Flags &&
		math.Abs(r.Size-o.Size) < 0.01
}

// pageBox 页面可见区域（PDF 用户空间）
type pageBox struct {
	X0, Y0, X1, Y1 float64
}

func (b pageBox) Width() float64  { return b.X1 - b.X0 }
func (b pageBox) Height() float64 { return b.Y1 - b.Y0 }

// toPageSpace 把用户空间坐标转换为页面坐标（左上原点）
func (b pageBox) toPageSpace(x, y float64) (float64, float64) {
	return x - b.X0, b.Y1 - y
}

func (b pageBox) runsFromGlyphs(glyphs []glyphRun) []textRun {
	out := make([]textRun, 0, len(glyphs))
	for _, g := range glyphs {
		if g.Size <= 0 || math.IsNaN(g.X) || math.IsNaN(g.Y) {
			continue
		}
		x, y := b.toPageSpace(g.X, g.Y)
		out = append(out, textRun{
			Text:     g.Text,
			X:        x,
			Baseline: y,
			Width:    g.Width,
			Size:     g.Size,
			Font:     g.Font,
			Color:    g.Color,
			Flags:    g.Flags,
			Ascent:   g.Ascent,
			Descent:  g.Descent,
			Seq:      g.Seq,
		})
	}
	return out
}

func (b pageBox) imageBlock(p imagePlacement) *ImageBlock {
	x0, y0 := b.toPageSpace(p.MinX, p.MaxY)
	x1, y1 := b.toPageSpace(p.MaxX, p.MinY)
	return &ImageBlock{BBox: NewRect(x0, y0, x1, y1), Name: p.Name}
}

// blockBuilder 按内容流顺序把文字片段组合为 span、行与块
type blockBuilder struct {
	config BlockConfig
}

func newBlockBuilder(config BlockConfig) *blockBuilder {
	return &blockBuilder{config: config}
}

type builtLine struct {
	line Line
	seq  int
}

type builtBlock struct {
	block Block
	seq   int
}

// Build 生成页面块列表，图片块按出现顺序穿插其中
func (bb *blockBuilder) Build(runs []textRun, images []*ImageBlock, imageSeq []int) []Block {
	lines := bb.groupLines(runs)
	blocks := bb.groupBlocks(lines)

	for i, img := range images {
		seq := 0
		if i < len(imageSeq) {
			seq = imageSeq[i]
		}
		blocks = append(blocks, builtBlock{block: img, seq: seq})
	}
	sort.SliceStable(blocks, func(i, j int) bool {
		return blocks[i].seq < blocks[j].seq
	})

	out := make([]Block, len(blocks))
	for i, b := range blocks {
		out[i] = b.block
	}
	return out
}

// groupLines 相邻片段基线接近、且没有明显回退或大间距时归入同一行
func (bb *blockBuilder) groupLines(runs []textRun) []builtLine {
	var lines []builtLine
	var current []textRun

	flush := func() {
		if line, ok := bb.buildLine(current); ok {
			lines = append(lines, builtLine{line: line, seq: current[0].Seq})
		}
		current = nil
	}

	for _, r := range runs {
		if len(current) == 0 {
			current = append(current, r)
			continue
		}
		prev := current[len(current)-1]
		avgHeight := (prev.Size + r.Size) / 2
		sameBaseline := math.Abs(r.Baseline-prev.Baseline) <= avgHeight*bb.config.LineHeightTolerance
		gap := r.X - (prev.X + prev.Width)
		backward := gap < -avgHeight
		farAway := gap > avgHeight*bb.config.HorizontalGapThreshold
		if sameBaseline && !backward && !farAway {
			current = append(current, r)
			continue
		}
		flush()
		current = append(current, r)
	}
	if len(current) > 0 {
		flush()
	}
	return lines
}

// buildLine 合并同样式片段为 span，纯空白片段丢弃
func (bb *blockBuilder) buildLine(runs []textRun) (Line, bool) {
	var spans []Span
	var last *textRun
	for i := range runs {
		r := runs[i]
		if strings.TrimSpace(r.Text) == "" {
			continue
		}
		box := r.bbox()
		if last != nil && last.sameStyle(r) && len(spans) > 0 {
			s := &spans[len(spans)-1]
			if r.X-s.BBox.X1 > r.Size*bb.config.SpaceThreshold &&
				!strings.HasSuffix(s.Text, " ") && !strings.HasPrefix(r.Text, " ") {
				s.Text += " "
			}
			s.Text += r.Text
			s.BBox = s.BBox.Union(box)
		} else {
			spans = append(spans, Span{
				Text:     r.Text,
				BBox:     box,
				FontSize: r.Size,
				FontName: r.Font,
				Color:    r.Color,
				Flags:    r.Flags,
				Origin:   Point{X: r.X, Y: r.Baseline},
			})
		}
		last = &runs[i]
	}

	if len(spans) == 0 {
		return Line{}, false
	}
	line := Line{Spans: spans}
	for i := range line.Spans {
		s := &line.Spans[i]
		s.Text = norm.NFC.String(strings.TrimSpace(s.Text))
		if i == 0 {
			line.BBox = s.BBox
		} else {
			line.BBox = line.BBox.Union(s.BBox)
		}
	}
	return line, true
}

// groupBlocks 行间距过大、没有水平重叠或缩进变化明显时开始新块
func (bb *blockBuilder) groupBlocks(lines []builtLine) []builtBlock {
	if len(lines) == 0 {
		return nil
	}

	var blocks []builtBlock
	current := &TextBlock{Lines: []Line{lines[0].line}, BBox: lines[0].line.BBox}
	currentSeq := lines[0].seq

	for i := 1; i < len(lines); i++ {
		prev := lines[i-1].line
		curr := lines[i].line

		gap := curr.BBox.Y0 - prev.BBox.Y1
		avgHeight := (prev.BBox.Height() + curr.BBox.Height()) / 2
		threshold := avgHeight * bb.config.VerticalGapThreshold

		fontSize := lineFontSize(prev)
		largeIndent := math.Abs(curr.BBox.X0-prev.BBox.X0) > fontSize*bb.config.HorizontalGapThreshold &&
			math.Abs(curr.BBox.X1-prev.BBox.X1) > fontSize*bb.config.HorizontalGapThreshold

		if gap > threshold || gap < -avgHeight || !prev.BBox.OverlapsX(curr.BBox) || largeIndent {
			blocks = append(blocks, builtBlock{block: current, seq: currentSeq})
			current = &TextBlock{Lines: []Line{curr}, BBox: curr.BBox}
			currentSeq = lines[i].seq
			continue
		}
		current.Lines = append(current.Lines, curr)
		current.BBox = current.BBox.Union(curr.BBox)
	}
	blocks = append(blocks, builtBlock{block: current, seq: currentSeq})
	return blocks
}

func lineFontSize(l Line) float64 {
	if len(l.Spans) == 0 {
		return 0
	}
	total := 0.0
	for _, s := range l.Spans {
		total += s.FontSize
	}
	return total / float64(len(l.Spans))
}

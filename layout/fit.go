package layout

import (
	"fmt"
	"math"
	"strings"
)

// FontStyle 字体样式变体
type FontStyle int

const (
	StyleRegular FontStyle = iota
	StyleBold
	StyleItalic
	StyleBoldItalic
)

// ResolveFontStyle 根据字体名选择样式，区分大小写地匹配 "Bold" 与 "Italic"
func ResolveFontStyle(fontName string) FontStyle {
	bold := strings.Contains(fontName, "Bold")
	italic := strings.Contains(fontName, "Italic")
	switch {
	case bold && italic:
		return StyleBoldItalic
	case bold:
		return StyleBold
	case italic:
		return StyleItalic
	default:
		return StyleRegular
	}
}

// GofpdfStyle gofpdf 的样式字符串
func (s FontStyle) GofpdfStyle() string {
	switch s {
	case StyleBold:
		return "B"
	case StyleItalic:
		return "I"
	case StyleBoldItalic:
		return "BI"
	default:
		return ""
	}
}

func (s FontStyle) String() string {
	switch s {
	case StyleBold:
		return "bold"
	case StyleItalic:
		return "italic"
	case StyleBoldItalic:
		return "bold-italic"
	default:
		return "regular"
	}
}

// FitParams 缩放换行参数
type FitParams struct {
	Padding     float64
	Leading     float64
	Floor       float64
	ShrinkRatio float64
}

// DefaultFitParams 默认参数：内边距 2，行距系数 1.1，最小字号 5，每次缩小到 0.95
var DefaultFitParams = FitParams{
	Padding:     2,
	Leading:     1.1,
	Floor:       5,
	ShrinkRatio: 0.95,
}

// normalized 非法参数回退到默认值
func (p FitParams) normalized() FitParams {
	if p.Padding < 0 || math.IsNaN(p.Padding) {
		p.Padding = DefaultFitParams.Padding
	}
	if !(p.Leading > 0) {
		p.Leading = DefaultFitParams.Leading
	}
	if !(p.Floor > 0) {
		p.Floor = DefaultFitParams.Floor
	}
	if !(p.ShrinkRatio > 0 && p.ShrinkRatio < 1) {
		p.ShrinkRatio = DefaultFitParams.ShrinkRatio
	}
	return p
}

// Measurer 计算指定样式、字号下字符串的渲染宽度
type Measurer interface {
	StringWidth(text string, style FontStyle, size float64) float64
}

// FitResult 缩放换行结果
type FitResult struct {
	Lines      []string
	FontSize   float64
	Leading    float64
	Iterations int
	// Overflow 到达最小字号后仍超出块高度
	Overflow bool
}

// Height 文本所需总高度
func (r FitResult) Height() float64 {
	return float64(len(r.Lines)) * r.Leading
}

// WrapText 贪心换行：每行宽度不超过 maxWidth，只在词边界断行；
// 单个词超宽时独占一行。显式换行符会被保留。
func WrapText(text string, maxWidth float64, width func(string) float64) []string {
	var lines []string
	paragraphs := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i, para := range paragraphs {
		words := strings.Fields(para)
		if len(words) == 0 {
			// 段间空行保留，首尾空段丢弃
			if i > 0 && i < len(paragraphs)-1 {
				lines = append(lines, "")
			}
			continue
		}

		current := ""
		for _, word := range words {
			if current == "" {
				current = word
				continue
			}
			candidate := current + " " + word
			if width(candidate) <= maxWidth {
				current = candidate
				continue
			}
			lines = append(lines, current)
			current = word
		}
		if current != "" {
			lines = append(lines, current)
		}
	}
	return lines
}

// MaxShrinkIterations 从 start 缩小到 floor 所需的最大次数 ⌈log(floor/start)/log(ratio)⌉
func MaxShrinkIterations(start, floor, ratio float64) int {
	if start <= floor {
		return 0
	}
	return int(math.Ceil(math.Log(floor/start) / math.Log(ratio)))
}

// FitText 在宽 w、高 h 的框内放置文本：先按初始字号换行，
// 若总高度超出则按比例缩小字号并重新换行，直到放下或到达最小字号。
// 字号不会低于 Floor；初始字号本身小于 Floor 时保持不变。
func FitText(text string, w, h, startSize float64, style FontStyle, m Measurer, params FitParams) (FitResult, error) {
	if math.IsNaN(startSize) || math.IsInf(startSize, 0) || startSize <= 0 {
		return FitResult{}, fmt.Errorf("无效的字号: %v", startSize)
	}
	p := params.normalized()
	maxWidth := w - p.Padding

	size := startSize
	wrap := func(sz float64) []string {
		return WrapText(text, maxWidth, func(s string) float64 {
			return m.StringWidth(s, style, sz)
		})
	}

	lines := wrap(size)
	needed := float64(len(lines)) * size * p.Leading
	iterations := 0

	for needed > h && size > p.Floor {
		size = math.Max(size*p.ShrinkRatio, p.Floor)
		iterations++
		lines = wrap(size)
		needed = float64(len(lines)) * size * p.Leading
	}

	return FitResult{
		Lines:      lines,
		FontSize:   size,
		Leading:    size * p.Leading,
		Iterations: iterations,
		Overflow:   needed > h,
	}, nil
}

package layout

import (
	"strings"

	lpdf "github.com/ledongthuc/pdf"
)

const (
	defaultAscent  = 0.93
	defaultDescent = 0.22
	// 无任何宽度信息时的字形宽度（千分之一字号）
	defaultGlyphWidth = 500
)

// charCode 内容流字符串中的一个字符编码
type charCode struct {
	raw string
	cid int
}

// fontInfo 内容流解释所需的字体信息：编码、字宽与样式标志
type fontInfo struct {
	name    string
	flags   int
	ascent  float64
	descent float64

	twoByte      bool
	enc          lpdf.TextEncoding
	firstChar    int
	widths       []float64
	missingWidth float64
	cidWidths    map[int]float64
	defaultWidth float64
}

func newFontInfo(font lpdf.Font) *fontInfo {
	fi := &fontInfo{
		name:    stripSubsetPrefix(font.V.Key("BaseFont").Name()),
		ascent:  defaultAscent,
		descent: defaultDescent,
		enc:     font.Encoder(),
	}

	descriptor := font.V.Key("FontDescriptor")
	if font.V.Key("Subtype").Name() == "Type0" {
		fi.twoByte = true
		fi.defaultWidth = 1000
		if desc := font.V.Key("DescendantFonts").Index(0); desc.Kind() == lpdf.Dict {
			if dw, ok := number(desc.Key("DW")); ok {
				fi.defaultWidth = dw
			}
			fi.cidWidths = parseCIDWidths(desc.Key("W"))
			descriptor = desc.Key("FontDescriptor")
		}
	} else {
		if fc, ok := number(font.V.Key("FirstChar")); ok {
			fi.firstChar = int(fc)
		}
		w := font.V.Key("Widths")
		for i := 0; i < w.Len(); i++ {
			v, _ := number(w.Index(i))
			fi.widths = append(fi.widths, v)
		}
	}

	if descriptor.Kind() == lpdf.Dict {
		fi.missingWidth, _ = number(descriptor.Key("MissingWidth"))
		if a, ok := number(descriptor.Key("Ascent")); ok && a > 500 && a < 1200 {
			fi.ascent = a / 1000
		}
		if d, ok := number(descriptor.Key("Descent")); ok && d < 0 && d > -500 {
			fi.descent = -d / 1000
		}
		if f, ok := number(descriptor.Key("Flags")); ok {
			fi.flags |= descriptorFlags(int(f))
		}
	}
	fi.flags |= FontNameFlags(fi.name)
	return fi
}

// fallbackFont 未设置字体或字体缺失时使用
func fallbackFont() *fontInfo {
	return &fontInfo{name: CoreFontFamily, ascent: defaultAscent, descent: defaultDescent}
}

// codes 按字体的编码宽度切分字符串
func (fi *fontInfo) codes(raw string) []charCode {
	step := 1
	if fi.twoByte {
		step = 2
	}
	out := make([]charCode, 0, len(raw)/step+1)
	for i := 0; i < len(raw); i += step {
		end := i + step
		if end > len(raw) {
			end = len(raw)
		}
		code := 0
		for j := i; j < end; j++ {
			code = code<<8 | int(raw[j])
		}
		out = append(out, charCode{raw: raw[i:end], cid: code})
	}
	return out
}

func (fi *fontInfo) decode(c charCode) string {
	if fi.enc == nil {
		return c.raw
	}
	return fi.enc.Decode(c.raw)
}

// width 字形宽度（千分之一字号）。字体未给出宽度时用 Helvetica 度量估算。
func (fi *fontInfo) width(c charCode, decoded string, est Measurer) float64 {
	if fi.twoByte {
		if w, ok := fi.cidWidths[c.cid]; ok {
			return w
		}
		return fi.defaultWidth
	}
	if idx := c.cid - fi.firstChar; idx >= 0 && idx < len(fi.widths) && fi.widths[idx] > 0 {
		return fi.widths[idx]
	}
	if fi.missingWidth > 0 {
		return fi.missingWidth
	}
	if est != nil && decoded != "" {
		if w := est.StringWidth(decoded, ResolveFontStyle(fi.name), 1000); w > 0 {
			return w
		}
	}
	return defaultGlyphWidth
}

// parseCIDWidths 解析 CID 字体的 W 数组：
// "c [w1 w2 ...]" 或 "cFirst cLast w"
func parseCIDWidths(w lpdf.Value) map[int]float64 {
	out := make(map[int]float64)
	if w.Kind() != lpdf.Array {
		return out
	}
	for i := 0; i < w.Len(); {
		first, ok := number(w.Index(i))
		if !ok || i+1 >= w.Len() {
			break
		}
		next := w.Index(i + 1)
		if next.Kind() == lpdf.Array {
			for j := 0; j < next.Len(); j++ {
				if v, ok := number(next.Index(j)); ok {
					out[int(first)+j] = v
				}
			}
			i += 2
			continue
		}
		if i+2 >= w.Len() {
			break
		}
		last, _ := number(next)
		v, _ := number(w.Index(i + 2))
		for c := int(first); c <= int(last) && c-int(first) < 0x10000; c++ {
			out[c] = v
		}
		i += 3
	}
	return out
}

// stripSubsetPrefix 去掉子集字体名前缀，如 "ABCDEF+Arial-Bold" -> "Arial-Bold"
func stripSubsetPrefix(name string) string {
	if len(name) > 7 && name[6] == '+' {
		prefix := name[:6]
		if strings.ToUpper(prefix) == prefix && strings.IndexFunc(prefix, func(r rune) bool {
			return r < 'A' || r > 'Z'
		}) < 0 {
			return name[7:]
		}
	}
	return name
}

// FontNameFlags 从字体名推断样式标志
func FontNameFlags(name string) int {
	lower := strings.ToLower(name)
	flags := 0
	if strings.Contains(lower, "bold") || strings.Contains(lower, "black") || strings.Contains(lower, "heavy") {
		flags |= FlagBold
	}
	if strings.Contains(lower, "italic") || strings.Contains(lower, "oblique") {
		flags |= FlagItalic
	}
	if strings.Contains(lower, "courier") || strings.Contains(lower, "mono") {
		flags |= FlagMonospace
	}
	if strings.Contains(lower, "times") || strings.Contains(lower, "serif") && !strings.Contains(lower, "sans") {
		flags |= FlagSerif
	}
	return flags
}

// descriptorFlags 将 FontDescriptor.Flags 映射为 span 标志
func descriptorFlags(f int) int {
	flags := 0
	if f&(1<<0) != 0 {
		flags |= FlagMonospace
	}
	if f&(1<<1) != 0 {
		flags |= FlagSerif
	}
	if f&(1<<6) != 0 {
		flags |= FlagItalic
	}
	if f&(1<<18) != 0 {
		flags |= FlagBold
	}
	return flags
}

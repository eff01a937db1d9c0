package layout

import "strings"

// CanonicalText 文本块的规范文本：按行序拼接所有 span 文本，以空格连接并去除首尾空白。
// 它是去重与译文查找的唯一键，每次都从 span 重新计算，不写回块。
func CanonicalText(b *TextBlock) string {
	if b == nil {
		return ""
	}
	var parts []string
	for _, line := range b.Lines {
		for _, span := range line.Spans {
			parts = append(parts, span.Text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

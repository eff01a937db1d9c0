package translator

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// refusalMarkers 模型拒绝或出错时回复中常见的片段
var refusalMarkers = []string{
	"I cannot translate",
	"language model",
	"Oops",
	"loops",
}

// ShouldSkip 不需要送去翻译的文本：空白、过短的非字母串、纯数字
func ShouldSkip(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return true
	}
	if utf8.RuneCountInString(trimmed) < 3 && !isAlpha(trimmed) {
		return true
	}
	if _, err := strconv.ParseFloat(strings.ReplaceAll(trimmed, ",", ""), 64); err == nil {
		return true
	}
	return false
}

// CleanReply 清理模型回复；回复无效时返回 false，调用方应使用原文
func CleanReply(reply string) (string, bool) {
	cleaned := strings.TrimSpace(reply)
	cleaned = stripQuotes(cleaned)
	if cleaned == "" {
		return "", false
	}
	for _, marker := range refusalMarkers {
		if strings.Contains(cleaned, marker) {
			return "", false
		}
	}
	return cleaned, true
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return s != ""
}

// stripQuotes 去掉模型常常原样带回的成对引号
func stripQuotes(s string) string {
	pairs := [][2]string{{`"`, `"`}, {"'", "'"}, {"“", "”"}}
	for _, p := range pairs {
		if len(s) >= len(p[0])+len(p[1]) && strings.HasPrefix(s, p[0]) && strings.HasSuffix(s, p[1]) {
			return strings.TrimSpace(s[len(p[0]) : len(s)-len(p[1])])
		}
	}
	return s
}

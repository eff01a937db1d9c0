package layout

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/golang/freetype/truetype"
	"github.com/jung-kurt/gofpdf"
	"golang.org/x/text/encoding/charmap"
)

// CoreFontFamily 内置字体族，只支持 cp1252 字符
const CoreFontFamily = "Helvetica"

// UnicodeFontFamily 注册 TTF 后使用的字体族名
const UnicodeFontFamily = "uni"

// FontSet 渲染使用的字体集合：内置 Helvetica 四种变体，外加一个可选的 UTF-8 字体
type FontSet struct {
	UnicodePath string
	// UnicodeName TTF 内记录的字体名
	UnicodeName string
}

// NewFontSet 创建字体集合；fontPath 为空时只使用内置字体
func NewFontSet(fontPath string) (*FontSet, error) {
	fs := &FontSet{}
	if fontPath == "" {
		return fs, nil
	}

	data, err := os.ReadFile(fontPath)
	if err != nil {
		return fs, fmt.Errorf("读取字体文件失败: %w", err)
	}
	font, err := truetype.Parse(data)
	if err != nil {
		return fs, fmt.Errorf("解析字体文件失败 %s: %w", filepath.Base(fontPath), err)
	}

	fs.UnicodePath = fontPath
	fs.UnicodeName = font.Name(truetype.NameIDFontFullName)
	return fs, nil
}

// HasUnicode 是否加载了 UTF-8 字体
func (fs *FontSet) HasUnicode() bool {
	return fs != nil && fs.UnicodePath != ""
}

// FamilyFor 为整段文本选择字体族：能用 cp1252 表示时用内置字体
func (fs *FontSet) FamilyFor(text string) string {
	if !fs.HasUnicode() || IsCP1252(text) {
		return CoreFontFamily
	}
	return UnicodeFontFamily
}

// Register 向 gofpdf 文档注册 UTF-8 字体的所有样式
func (fs *FontSet) Register(pdf *gofpdf.Fpdf) {
	if !fs.HasUnicode() {
		return
	}
	for _, style := range []string{"", "B", "I", "BI"} {
		pdf.AddUTF8Font(UnicodeFontFamily, style, fs.UnicodePath)
	}
}

// IsCP1252 文本是否可以用 Windows-1252 编码
func IsCP1252(text string) bool {
	_, err := charmap.Windows1252.NewEncoder().String(text)
	return err == nil
}

// SystemFontDetector 系统字体检测器
type SystemFontDetector struct{}

// NewSystemFontDetector 创建系统字体检测器
func NewSystemFontDetector() *SystemFontDetector {
	return &SystemFontDetector{}
}

// GetSystemFontPath 根据目标语言查找可用的 TTF 字体
func (sfd *SystemFontDetector) GetSystemFontPath(language string) string {
	candidates := fontCandidates(language)
	for _, dir := range sfd.fontDirs() {
		if path := findFirstExistingFont(dir, candidates); path != "" {
			return path
		}
	}
	return ""
}

func (sfd *SystemFontDetector) fontDirs() []string {
	switch runtime.GOOS {
	case "windows":
		return []string{filepath.Join(os.Getenv("WINDIR"), "Fonts")}
	case "darwin":
		return []string{
			"/Library/Fonts",
			"/System/Library/Fonts/Supplemental",
			filepath.Join(os.Getenv("HOME"), "Library/Fonts"),
		}
	default:
		return []string{
			"/usr/share/fonts",
			"/usr/local/share/fonts",
			filepath.Join(os.Getenv("HOME"), ".fonts"),
		}
	}
}

// fontCandidates 只列 .ttf，gofpdf 与 freetype 都不支持 .ttc
func fontCandidates(language string) []string {
	switch strings.ToLower(language) {
	case "hi", "hindi", "devanagari":
		return []string{
			"opentype/noto/NotoSansDevanagari-Regular.ttf",
			"truetype/noto/NotoSansDevanagari-Regular.ttf",
			"truetype/lohit-devanagari/Lohit-Devanagari.ttf",
			"truetype/gargi/Gargi.ttf",
			"NotoSansDevanagari-Regular.ttf",
			"Nirmala.ttf",
			"mangal.ttf",
		}
	case "ru", "russian", "cyrillic", "el", "greek":
		return []string{
			"truetype/dejavu/DejaVuSans.ttf",
			"truetype/liberation/LiberationSans-Regular.ttf",
			"DejaVuSans.ttf",
			"arial.ttf",
		}
	default:
		return []string{
			"truetype/dejavu/DejaVuSans.ttf",
			"truetype/liberation/LiberationSans-Regular.ttf",
			"opentype/noto/NotoSans-Regular.ttf",
			"DejaVuSans.ttf",
			"Arial Unicode.ttf",
			"arial.ttf",
		}
	}
}

func findFirstExistingFont(baseDir string, candidates []string) string {
	for _, candidate := range candidates {
		fullPath := filepath.Join(baseDir, candidate)
		if info, err := os.Stat(fullPath); err == nil && !info.IsDir() {
			return fullPath
		}
	}
	return ""
}

package layout

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// NormalizeImage 把图片数据转换为 gofpdf 可直接绘制的格式（JPG/PNG/GIF）。
// 原始数据不会被修改；TIFF/BMP/WebP 解码后重新编码为 PNG。
func NormalizeImage(data []byte, ext string) (string, []byte, error) {
	if len(data) == 0 {
		return "", nil, fmt.Errorf("图片数据为空")
	}

	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "jpg", "jpeg":
		if _, err := jpeg.DecodeConfig(bytes.NewReader(data)); err != nil {
			return "", nil, fmt.Errorf("JPEG 数据无效: %w", err)
		}
		return "JPG", data, nil
	case "png":
		if _, err := png.DecodeConfig(bytes.NewReader(data)); err != nil {
			return "", nil, fmt.Errorf("PNG 数据无效: %w", err)
		}
		return "PNG", data, nil
	case "gif":
		if _, err := gif.DecodeConfig(bytes.NewReader(data)); err != nil {
			return "", nil, fmt.Errorf("GIF 数据无效: %w", err)
		}
		return "GIF", data, nil
	case "tif", "tiff":
		return reencodePNG(data, tiff.Decode)
	case "bmp":
		return reencodePNG(data, bmp.Decode)
	case "webp":
		return reencodePNG(data, webp.Decode)
	default:
		return "", nil, fmt.Errorf("不支持的图片格式: %q", ext)
	}
}

func reencodePNG(data []byte, decode func(r io.Reader) (image.Image, error)) (string, []byte, error) {
	img, err := decode(bytes.NewReader(data))
	if err != nil {
		return "", nil, fmt.Errorf("解码图片失败: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", nil, fmt.Errorf("转换为 PNG 失败: %w", err)
	}
	return "PNG", buf.Bytes(), nil
}

package layout

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// PDFImageExtractor 按页码和 XObject 名称读取图片原始字节。
// pdfcpu 的上下文不是并发安全的，所有访问串行化。
type PDFImageExtractor struct {
	mu     sync.Mutex
	ctx    *model.Context
	logger *PDFLogger
}

// NewPDFImageExtractor 创建图片提取器
func NewPDFImageExtractor(pdfPath string, logger *PDFLogger) (*PDFImageExtractor, error) {
	ctx, err := api.ReadContextFile(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("读取PDF上下文失败: %w", err)
	}
	return &PDFImageExtractor{ctx: ctx, logger: logger}, nil
}

// PageCount 文档页数
func (e *PDFImageExtractor) PageCount() int {
	return e.ctx.PageCount
}

// ImageData 返回图片字节与扩展名。DCT/JPX 编码的图片原样返回，
// 其他图片解码后重新编码为 PNG。
func (e *PDFImageExtractor) ImageData(pageNum int, name string) ([]byte, string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sd, err := e.findImage(pageNum, name)
	if err != nil {
		return nil, "", err
	}

	if len(sd.FilterPipeline) == 1 {
		switch sd.FilterPipeline[0].Name {
		case "DCTDecode":
			return sd.Raw, "jpeg", nil
		case "JPXDecode":
			return sd.Raw, "jpx", nil
		}
	}

	img, err := e.extractImage(sd)
	if err != nil {
		return nil, "", err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, "", fmt.Errorf("PNG编码失败: %w", err)
	}
	return buf.Bytes(), "png", nil
}

func (e *PDFImageExtractor) findImage(pageNum int, name string) (*types.StreamDict, error) {
	pageDict, _, _, err := e.ctx.PageDict(pageNum, true)
	if err != nil {
		return nil, fmt.Errorf("获取页面字典失败: %w", err)
	}
	if pageDict == nil {
		return nil, fmt.Errorf("第 %d 页不存在", pageNum)
	}

	resourcesObj, found := pageDict.Find("Resources")
	if !found {
		return nil, fmt.Errorf("页面缺少 Resources")
	}
	resourcesDict, err := e.ctx.DereferenceDict(resourcesObj)
	if err != nil || resourcesDict == nil {
		return nil, fmt.Errorf("解析 Resources 失败: %v", err)
	}

	xobjectObj, found := resourcesDict.Find("XObject")
	if !found {
		return nil, fmt.Errorf("页面没有 XObject")
	}
	xobjectDict, err := e.ctx.DereferenceDict(xobjectObj)
	if err != nil || xobjectDict == nil {
		return nil, fmt.Errorf("解析 XObject 失败: %v", err)
	}

	value, found := xobjectDict.Find(name)
	if !found {
		return nil, fmt.Errorf("未找到图片 %s", name)
	}
	streamDict, _, err := e.ctx.DereferenceStreamDict(value)
	if err != nil {
		return nil, fmt.Errorf("解引用流失败: %w", err)
	}
	if !isImageXObject(streamDict) {
		return nil, fmt.Errorf("%s 不是图片", name)
	}
	return streamDict, nil
}

// isImageXObject 检查XObject是否为图片
func isImageXObject(streamDict *types.StreamDict) bool {
	if streamDict == nil || streamDict.Dict == nil {
		return false
	}
	subtypeObj, found := streamDict.Dict.Find("Subtype")
	if !found {
		return false
	}
	subtype, ok := subtypeObj.(types.Name)
	return ok && subtype == "Image"
}

// extractImage 解码像素数据，支持 8 位灰度、RGB 与 CMYK
func (e *PDFImageExtractor) extractImage(streamDict *types.StreamDict) (image.Image, error) {
	if err := streamDict.Decode(); err != nil {
		return nil, fmt.Errorf("解码流失败: %w", err)
	}
	if streamDict.Content == nil {
		return nil, fmt.Errorf("流内容为空")
	}

	width, _ := getIntValue(streamDict.Dict, "Width")
	height, _ := getIntValue(streamDict.Dict, "Height")
	bitsPerComponent, _ := getIntValue(streamDict.Dict, "BitsPerComponent")
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("无效的图片尺寸: %dx%d", width, height)
	}
	if bitsPerComponent != 8 {
		return nil, fmt.Errorf("不支持的位深: %d", bitsPerComponent)
	}

	components := e.colorComponents(streamDict.Dict)
	if components == 0 {
		return nil, fmt.Errorf("不支持的颜色空间")
	}
	if len(streamDict.Content) < width*height*components {
		return nil, fmt.Errorf("像素数据不足: %d < %d", len(streamDict.Content), width*height*components)
	}
	return createImage(streamDict.Content, width, height, components), nil
}

// getIntValue 获取整数值
func getIntValue(dict types.Dict, key string) (int, bool) {
	obj, found := dict.Find(key)
	if !found {
		return 0, false
	}
	switch v := obj.(type) {
	case types.Integer:
		return int(v), true
	case types.Float:
		return int(v), true
	default:
		return 0, false
	}
}

// colorComponents 颜色空间的分量数；ICCBased 读取 N
func (e *PDFImageExtractor) colorComponents(dict types.Dict) int {
	obj, found := dict.Find("ColorSpace")
	if !found {
		return 3
	}
	if ref, ok := obj.(types.IndirectRef); ok {
		resolved, err := e.ctx.Dereference(ref)
		if err != nil {
			return 0
		}
		obj = resolved
	}

	switch v := obj.(type) {
	case types.Name:
		switch v {
		case "DeviceGray", "CalGray":
			return 1
		case "DeviceRGB", "CalRGB":
			return 3
		case "DeviceCMYK":
			return 4
		}
	case types.Array:
		if len(v) < 2 {
			return 0
		}
		if family, ok := v[0].(types.Name); ok && family == "ICCBased" {
			sd, _, err := e.ctx.DereferenceStreamDict(v[1])
			if err != nil || sd == nil {
				return 0
			}
			n, _ := getIntValue(sd.Dict, "N")
			if n == 1 || n == 3 || n == 4 {
				return n
			}
		}
	}
	return 0
}

// createImage 按分量数构造 RGBA 图片
func createImage(data []byte, width, height, components int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			offset := (y*width + x) * components
			var r, g, b uint8
			switch components {
			case 1:
				r, g, b = data[offset], data[offset], data[offset]
			case 3:
				r, g, b = data[offset], data[offset+1], data[offset+2]
			case 4:
				c := CMYKToRGB(
					float64(data[offset])/255,
					float64(data[offset+1])/255,
					float64(data[offset+2])/255,
					float64(data[offset+3])/255,
				)
				r, g, b = uint8(c.R*255), uint8(c.G*255), uint8(c.B*255)
			}
			img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return img
}

// SaveAsset 把图片写入资源目录，文件名为 page{页码}_{资源名}.{扩展名}
func SaveAsset(dir string, pageNum int, img *ImageBlock) (string, error) {
	if !img.HasData() {
		return "", nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("创建资源目录失败: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("page%d_%s.%s", pageNum, img.Name, img.Ext))
	if err := os.WriteFile(path, img.Data, 0644); err != nil {
		return "", fmt.Errorf("写入图片失败: %w", err)
	}
	return path, nil
}

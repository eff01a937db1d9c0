package layout

import "math"

// RGB 取值范围 [0,1] 的颜色
type RGB struct {
	R, G, B float64
}

var (
	Black = RGB{0, 0, 0}
	White = RGB{1, 1, 1}
)

// DecodePacked 解码 0xRRGGBB
func DecodePacked(c uint32) RGB {
	return RGB{
		R: float64((c>>16)&0xFF) / 255,
		G: float64((c>>8)&0xFF) / 255,
		B: float64(c&0xFF) / 255,
	}
}

// DecodeColor 解码任意来源的颜色值；非整数或越界的值一律返回黑色
func DecodeColor(v interface{}) RGB {
	switch c := v.(type) {
	case uint32:
		if c > 0xFFFFFF {
			return Black
		}
		return DecodePacked(c)
	case int:
		return decodeSigned(int64(c))
	case int32:
		return decodeSigned(int64(c))
	case int64:
		return decodeSigned(c)
	case uint:
		if c > 0xFFFFFF {
			return Black
		}
		return DecodePacked(uint32(c))
	case uint64:
		if c > 0xFFFFFF {
			return Black
		}
		return DecodePacked(uint32(c))
	default:
		return Black
	}
}

func decodeSigned(c int64) RGB {
	if c < 0 || c > 0xFFFFFF {
		return Black
	}
	return DecodePacked(uint32(c))
}

// Bytes 转换为 0-255 分量
func (c RGB) Bytes() (int, int, int) {
	return toByte(c.R), toByte(c.G), toByte(c.B)
}

func toByte(v float64) int {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return int(math.Round(v * 255))
}

// PackRGB 将 [0,1] 分量打包为 0xRRGGBB
func PackRGB(r, g, b float64) uint32 {
	c := RGB{r, g, b}
	rb, gb, bb := c.Bytes()
	return uint32(rb)<<16 | uint32(gb)<<8 | uint32(bb)
}

// CMYKToRGB 简化的 CMYK 转换
func CMYKToRGB(c, m, y, k float64) RGB {
	return RGB{
		R: (1 - c) * (1 - k),
		G: (1 - m) * (1 - k),
		B: (1 - y) * (1 - k),
	}
}

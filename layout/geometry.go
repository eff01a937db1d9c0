package layout

import "math"

// Point 坐标点
type Point struct {
	X float64
	Y float64
}

// Rect 源坐标系下的矩形（左上角为原点，y 轴向下）
type Rect struct {
	X0, Y0, X1, Y1 float64
}

// NewRect 创建矩形，保证 X0<=X1 且 Y0<=Y1
func NewRect(x0, y0, x1, y1 float64) Rect {
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	return Rect{X0: x0, Y0: y0, X1: x1, Y1: y1}
}

func (r Rect) Width() float64  { return r.X1 - r.X0 }
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

// IsEmpty 宽或高为零
func (r Rect) IsEmpty() bool {
	return r.Width() <= 0 || r.Height() <= 0
}

// Union 合并两个矩形；零值矩形视为空
func (r Rect) Union(o Rect) Rect {
	if r == (Rect{}) {
		return o
	}
	if o == (Rect{}) {
		return r
	}
	return Rect{
		X0: math.Min(r.X0, o.X0),
		Y0: math.Min(r.Y0, o.Y0),
		X1: math.Max(r.X1, o.X1),
		Y1: math.Max(r.Y1, o.Y1),
	}
}

// OverlapsX 水平方向是否重叠
func (r Rect) OverlapsX(o Rect) bool {
	return r.X0 <= o.X1 && o.X0 <= r.X1
}

// TransformY 源坐标 y 转换为目标坐标（左下角为原点，y 轴向上）
func TransformY(y, pageHeight float64) float64 {
	return pageHeight - y
}

// TargetRect 目标坐标系下的矩形，(X, Y) 为左下角
type TargetRect struct {
	X, Y, W, H float64
}

// ToTarget 将源矩形转换为目标坐标系：底边 y1 变为 H-y1
func (r Rect) ToTarget(pageHeight float64) TargetRect {
	return TargetRect{
		X: r.X0,
		Y: TransformY(r.Y1, pageHeight),
		W: r.Width(),
		H: r.Height(),
	}
}

// Top 目标坐标系下的上边
func (t TargetRect) Top() float64 {
	return t.Y + t.H
}

// Matrix PDF 仿射矩阵 [a b c d e f]
type Matrix [6]float64

// IdentityMatrix 单位矩阵
var IdentityMatrix = Matrix{1, 0, 0, 1, 0, 0}

// Multiply 返回 m × n（先应用 m 再应用 n）
func (m Matrix) Multiply(n Matrix) Matrix {
	return Matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

// Apply 变换一个点
func (m Matrix) Apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// TranslateMatrix 平移矩阵
func TranslateMatrix(tx, ty float64) Matrix {
	return Matrix{1, 0, 0, 1, tx, ty}
}

// UnitSquareBounds 单位正方形经 m 变换后的包围盒（PDF 用户空间，y 向上）
func (m Matrix) UnitSquareBounds() (minX, minY, maxX, maxY float64) {
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, p := range [][2]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
		x, y := m.Apply(p[0], p[1])
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	return
}

// VerticalScale 矩阵在 y 方向上的缩放量
func (m Matrix) VerticalScale() float64 {
	return math.Hypot(m[2], m[3])
}

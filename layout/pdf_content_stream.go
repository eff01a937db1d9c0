package layout

import (
	"math"
	"strings"

	lpdf "github.com/ledongthuc/pdf"
)

// maxFormDepth Form XObject 最大嵌套深度
const maxFormDepth = 8

// tjSpaceThreshold TJ 数组中大于该值（千分之一字号）的负向位移视为空格
const tjSpaceThreshold = 200

// glyphRun 一次文本显示操作产生的字形串（PDF 用户空间，y 向上）
type glyphRun struct {
	Text    string
	X, Y    float64 // 基线起点
	Width   float64
	Size    float64
	Font    string
	Color   uint32
	Flags   int
	Ascent  float64 // 相对字号的比例
	Descent float64
	Seq     int
}

// imagePlacement Do 操作放置的图片，包围盒为 CTM 作用于单位正方形的结果
type imagePlacement struct {
	Name                   string
	MinX, MinY, MaxX, MaxY float64
	Seq                    int
}

// graphicsState q/Q 保存的图形状态（文本状态参数也属于图形状态）
type graphicsState struct {
	ctm   Matrix
	fill  uint32
	tc    float64 // 字符间距
	tw    float64 // 单词间距
	th    float64 // 水平缩放
	tl    float64 // 行距
	trise float64
	tfs   float64
	font  *fontInfo
}

// contentInterpreter 解释页面内容流，收集文本与图片位置
type contentInterpreter struct {
	widths Measurer
	fonts  map[string]*fontInfo

	g     graphicsState
	stack []graphicsState
	tm    Matrix
	tlm   Matrix

	runs   []glyphRun
	images []imagePlacement
	seq    int
}

func newContentInterpreter(widths Measurer) *contentInterpreter {
	return &contentInterpreter{
		widths: widths,
		fonts:  make(map[string]*fontInfo),
		g: graphicsState{
			ctm: IdentityMatrix,
			th:  1,
		},
		tm:  IdentityMatrix,
		tlm: IdentityMatrix,
	}
}

// runPage 解释页面的 Contents，可以是单个流或流数组
func (ci *contentInterpreter) runPage(page lpdf.Page) {
	resources := page.Resources()
	contents := page.V.Key("Contents")
	switch contents.Kind() {
	case lpdf.Stream:
		ci.run(contents, resources, 0)
	case lpdf.Array:
		for i := 0; i < contents.Len(); i++ {
			if strm := contents.Index(i); strm.Kind() == lpdf.Stream {
				ci.run(strm, resources, 0)
			}
		}
	}
}

func (ci *contentInterpreter) run(strm, resources lpdf.Value, depth int) {
	lpdf.Interpret(strm, func(stk *lpdf.Stack, op string) {
		n := stk.Len()
		args := make([]lpdf.Value, n)
		for i := n - 1; i >= 0; i-- {
			args[i] = stk.Pop()
		}
		ci.handle(op, args, resources, depth)
	})
}

func (ci *contentInterpreter) handle(op string, args []lpdf.Value, resources lpdf.Value, depth int) {
	g := &ci.g
	switch op {
	case "q":
		ci.stack = append(ci.stack, *g)
	case "Q":
		if n := len(ci.stack); n > 0 {
			*g = ci.stack[n-1]
			ci.stack = ci.stack[:n-1]
		}
	case "cm":
		if m, ok := matrixArgs(args); ok {
			g.ctm = m.Multiply(g.ctm)
		}

	case "BT":
		ci.tm = IdentityMatrix
		ci.tlm = IdentityMatrix
	case "Tf":
		if len(args) == 2 {
			g.font = ci.loadFont(resources, args[0].Name())
			g.tfs, _ = number(args[1])
		}
	case "Tc":
		g.tc = lastNumber(args, g.tc)
	case "Tw":
		g.tw = lastNumber(args, g.tw)
	case "Tz":
		g.th = lastNumber(args, g.th*100) / 100
	case "TL":
		g.tl = lastNumber(args, g.tl)
	case "Ts":
		g.trise = lastNumber(args, g.trise)
	case "Td", "TD":
		if len(args) == 2 {
			tx, _ := number(args[0])
			ty, _ := number(args[1])
			if op == "TD" {
				g.tl = -ty
			}
			ci.tlm = TranslateMatrix(tx, ty).Multiply(ci.tlm)
			ci.tm = ci.tlm
		}
	case "Tm":
		if m, ok := matrixArgs(args); ok {
			ci.tm = m
			ci.tlm = m
		}
	case "T*":
		ci.nextLine()

	case "Tj":
		if len(args) == 1 {
			ci.show(args[0].RawString())
		}
	case "'":
		if len(args) == 1 {
			ci.nextLine()
			ci.show(args[0].RawString())
		}
	case "\"":
		if len(args) == 3 {
			g.tw, _ = number(args[0])
			g.tc, _ = number(args[1])
			ci.nextLine()
			ci.show(args[2].RawString())
		}
	case "TJ":
		if len(args) == 1 && args[0].Kind() == lpdf.Array {
			ci.showArray(args[0])
		}

	case "g":
		if v, ok := numbers(args, 1); ok {
			g.fill = PackRGB(v[0], v[0], v[0])
		}
	case "rg":
		if v, ok := numbers(args, 3); ok {
			g.fill = PackRGB(v[0], v[1], v[2])
		}
	case "k":
		if v, ok := numbers(args, 4); ok {
			c := CMYKToRGB(v[0], v[1], v[2], v[3])
			g.fill = PackRGB(c.R, c.G, c.B)
		}
	case "cs":
		g.fill = 0
	case "sc", "scn":
		ci.setFillComponents(args)

	case "Do":
		if len(args) == 1 {
			ci.doXObject(args[0].Name(), resources, depth)
		}
	}
}

func (ci *contentInterpreter) next() int {
	ci.seq++
	return ci.seq
}

func (ci *contentInterpreter) nextLine() {
	ci.tlm = TranslateMatrix(0, -ci.g.tl).Multiply(ci.tlm)
	ci.tm = ci.tlm
}

// setFillComponents sc/scn 按分量数推断颜色空间，图案名忽略
func (ci *contentInterpreter) setFillComponents(args []lpdf.Value) {
	var v []float64
	for _, a := range args {
		if f, ok := number(a); ok {
			v = append(v, f)
		}
	}
	switch len(v) {
	case 1:
		ci.g.fill = PackRGB(v[0], v[0], v[0])
	case 3:
		ci.g.fill = PackRGB(v[0], v[1], v[2])
	case 4:
		c := CMYKToRGB(v[0], v[1], v[2], v[3])
		ci.g.fill = PackRGB(c.R, c.G, c.B)
	}
}

// renderingMatrix Trm = [Tfs×Th 0 0 Tfs 0 Trise] × Tm × CTM
func (ci *contentInterpreter) renderingMatrix() Matrix {
	g := ci.g
	return Matrix{g.tfs * g.th, 0, 0, g.tfs, 0, g.trise}.Multiply(ci.tm).Multiply(g.ctm)
}

// show 显示一个字符串，逐字形推进文本矩阵
func (ci *contentInterpreter) show(raw string) {
	g := &ci.g
	font := g.font
	if font == nil {
		font = fallbackFont()
	}

	trm := ci.renderingMatrix()
	startX, startY := trm.Apply(0, 0)
	size := trm.VerticalScale()

	var text strings.Builder
	for _, code := range font.codes(raw) {
		decoded := font.decode(code)
		text.WriteString(decoded)

		w0 := font.width(code, decoded, ci.widths)
		tx := w0/1000*g.tfs + g.tc
		if len(code.raw) == 1 && code.raw[0] == ' ' {
			tx += g.tw
		}
		tx *= g.th
		ci.tm = TranslateMatrix(tx, 0).Multiply(ci.tm)
	}

	endX, endY := ci.renderingMatrix().Apply(0, 0)
	if text.Len() == 0 {
		return
	}

	ci.runs = append(ci.runs, glyphRun{
		Text:    text.String(),
		X:       startX,
		Y:       startY,
		Width:   math.Hypot(endX-startX, endY-startY),
		Size:    size,
		Font:    font.name,
		Color:   g.fill,
		Flags:   font.flags,
		Ascent:  font.ascent,
		Descent: font.descent,
		Seq:     ci.next(),
	})
}

// showArray TJ：字符串与位移交替，较大的负向位移当作单词间隔
func (ci *contentInterpreter) showArray(arr lpdf.Value) {
	g := &ci.g
	for i := 0; i < arr.Len(); i++ {
		item := arr.Index(i)
		if item.Kind() == lpdf.String {
			ci.show(item.RawString())
			continue
		}
		adj, ok := number(item)
		if !ok {
			continue
		}
		tx := -adj / 1000 * g.tfs * g.th
		ci.tm = TranslateMatrix(tx, 0).Multiply(ci.tm)
		if adj < -tjSpaceThreshold && len(ci.runs) > 0 {
			last := &ci.runs[len(ci.runs)-1]
			if !strings.HasSuffix(last.Text, " ") {
				last.Text += " "
			}
		}
	}
}

// doXObject 图片记录位置；表单递归解释
func (ci *contentInterpreter) doXObject(name string, resources lpdf.Value, depth int) {
	if name == "" {
		return
	}
	xobj := resources.Key("XObject").Key(name)
	if xobj.Kind() != lpdf.Stream {
		return
	}

	switch xobj.Key("Subtype").Name() {
	case "Image":
		minX, minY, maxX, maxY := ci.g.ctm.UnitSquareBounds()
		ci.images = append(ci.images, imagePlacement{
			Name: name,
			MinX: minX,
			MinY: minY,
			MaxX: maxX,
			MaxY: maxY,
			Seq:  ci.next(),
		})
	case "Form":
		if depth >= maxFormDepth {
			return
		}
		formRes := xobj.Key("Resources")
		if formRes.Kind() == lpdf.Null {
			formRes = resources
		}
		saved := ci.g
		savedStack := len(ci.stack)
		if m, ok := matrixValue(xobj.Key("Matrix")); ok {
			ci.g.ctm = m.Multiply(ci.g.ctm)
		}
		ci.run(xobj, formRes, depth+1)
		ci.g = saved
		ci.stack = ci.stack[:savedStack]
	}
}

func (ci *contentInterpreter) loadFont(resources lpdf.Value, name string) *fontInfo {
	fontDict := resources.Key("Font").Key(name)
	if fontDict.Kind() != lpdf.Dict {
		return fallbackFont()
	}
	// 不同资源字典中的同名字体可能不同，用对象本身区分
	key := name + "|" + fontDict.String()
	if f, ok := ci.fonts[key]; ok {
		return f
	}
	f := newFontInfo(lpdf.Font{V: fontDict})
	ci.fonts[key] = f
	return f
}

// number 读取数字操作数；非数字返回 false（直接调用 Float64 会 panic）
func number(v lpdf.Value) (float64, bool) {
	switch v.Kind() {
	case lpdf.Integer:
		return float64(v.Int64()), true
	case lpdf.Real:
		return v.Float64(), true
	default:
		return 0, false
	}
}

func numbers(args []lpdf.Value, n int) ([]float64, bool) {
	if len(args) != n {
		return nil, false
	}
	out := make([]float64, n)
	for i, a := range args {
		f, ok := number(a)
		if !ok {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}

func lastNumber(args []lpdf.Value, def float64) float64 {
	if len(args) == 0 {
		return def
	}
	if f, ok := number(args[len(args)-1]); ok {
		return f
	}
	return def
}

func matrixArgs(args []lpdf.Value) (Matrix, bool) {
	v, ok := numbers(args, 6)
	if !ok {
		return Matrix{}, false
	}
	return Matrix{v[0], v[1], v[2], v[3], v[4], v[5]}, true
}

func matrixValue(v lpdf.Value) (Matrix, bool) {
	if v.Kind() != lpdf.Array || v.Len() != 6 {
		return Matrix{}, false
	}
	args := make([]lpdf.Value, 6)
	for i := range args {
		args[i] = v.Index(i)
	}
	return matrixArgs(args)
}

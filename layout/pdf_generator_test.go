package layout

import (
	"bytes"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleWritesPDF(t *testing.T) {
	r := NewRenderer(nil, DefaultFitParams, nil)
	first, err := r.Render(helloPage(), TranslationMap{"Hello World": "Namaste Duniya"})
	require.NoError(t, err)

	landscape := helloPage()
	landscape.Index = 2
	landscape.Width, landscape.Height = 842, 595
	second, err := r.Render(landscape, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	var logs bytes.Buffer
	a := NewAssembler(nil, NewPDFLogger(&logs, LogLevelDebug))
	require.NoError(t, a.Assemble(&buf, []*RenderedPage{first, nil, second}))

	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
	assert.Contains(t, buf.String(), "%%EOF")
	assert.Empty(t, logs.String())
}

func TestAssembleNoPages(t *testing.T) {
	err := NewAssembler(nil, nil).Assemble(&bytes.Buffer{}, []*RenderedPage{nil})
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrDocumentAssembly))
	assert.True(t, errors.Is(err, ErrNoContent))
}

// TestAssembleSkipsBrokenImage 损坏的图片只记录警告
func TestAssembleSkipsBrokenImage(t *testing.T) {
	page := &RenderedPage{
		Index:  1,
		Width:  200,
		Height: 200,
		Ops: []DrawOp{
			{Kind: OpImage, Rect: TargetRect{X: 10, Y: 10, W: 50, H: 50}, Data: []byte("garbage"), Ext: "png", Name: "p1_b0"},
			{Kind: OpImage, Rect: TargetRect{X: 80, Y: 10, W: 50, H: 50}, Data: pngBytes(t, solidImage(8, 8, color.RGBA{G: 255, A: 255})), Ext: "png", Name: "p1_b1"},
		},
	}

	var buf, logs bytes.Buffer
	err := NewAssembler(nil, NewPDFLogger(&logs, LogLevelDebug)).Assemble(&buf, []*RenderedPage{page})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
	assert.Contains(t, logs.String(), string(ErrImageDecode))
	assert.Contains(t, logs.String(), "p1_b0")
	assert.NotContains(t, logs.String(), "p1_b1")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestAssembleOutputFailureIsFatal(t *testing.T) {
	page, err := NewRenderer(nil, DefaultFitParams, nil).Render(helloPage(), nil)
	require.NoError(t, err)

	err = NewAssembler(nil, nil).Assemble(failingWriter{}, []*RenderedPage{page})
	require.Error(t, err)
	var pdfErr *PDFError
	require.ErrorAs(t, err, &pdfErr)
	assert.Equal(t, ErrDocumentAssembly, pdfErr.Code)
	assert.True(t, pdfErr.Fatal())
}

func TestAssembleFile(t *testing.T) {
	page, err := NewRenderer(nil, DefaultFitParams, nil).Render(helloPage(), nil)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out", "translated.pdf")
	require.NoError(t, NewAssembler(nil, nil).AssembleFile(path, []*RenderedPage{page}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

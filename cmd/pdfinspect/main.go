// Command pdfinspect 打印 PDF 的版面提取结果，用于排查提取与渲染问题。
//
//	pdfinspect input.pdf [--pages N] [--json] [--texts]
package main

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/SilentEigen/pdf-hindi-translator/layout"
)

type options struct {
	input   string
	pages   int
	asJSON  bool
	texts   bool
	verbose bool
}

// blockReport 单个块的摘要
type blockReport struct {
	Kind     string     `json:"kind"`
	BBox     [4]float64 `json:"bbox"`
	Text     string     `json:"text,omitempty"`
	FontName string     `json:"fontName,omitempty"`
	FontSize float64    `json:"fontSize,omitempty"`
	Color    string     `json:"color,omitempty"`
	Lines    int        `json:"lines,omitempty"`
	Image    string     `json:"image,omitempty"`
	Bytes    int        `json:"bytes,omitempty"`
}

type pageReport struct {
	Index  int           `json:"index"`
	Width  float64       `json:"width"`
	Height float64       `json:"height"`
	Blocks []blockReport `json:"blocks"`
}

type report struct {
	File        string       `json:"file"`
	MD5         string       `json:"md5"`
	TotalPages  int          `json:"totalPages"`
	Pages       []pageReport `json:"pages"`
	UniqueTexts []string     `json:"uniqueTexts,omitempty"`
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func parseArgs(args []string) (options, error) {
	var opts options
	fs := pflag.NewFlagSet("pdfinspect", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.IntVar(&opts.pages, "pages", 0, "只检查前 N 页，0 表示全部")
	fs.BoolVar(&opts.asJSON, "json", false, "以 JSON 输出")
	fs.BoolVar(&opts.texts, "texts", false, "同时列出去重后的文本")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "输出调试日志")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() != 1 {
		return opts, errors.New("用法: pdfinspect input.pdf [--pages N] [--json] [--texts]")
	}
	if opts.pages < 0 {
		return opts, fmt.Errorf("--pages 不能为负数: %d", opts.pages)
	}
	opts.input = fs.Arg(0)
	return opts, nil
}

func run(args []string, stdout io.Writer) error {
	opts, err := parseArgs(args)
	if err != nil {
		return err
	}

	logger := layout.NewNopLogger()
	if opts.verbose {
		logger = layout.NewPDFLogger(os.Stderr, layout.LogLevelDebug)
	}

	sum, err := fileMD5(opts.input)
	if err != nil {
		return err
	}

	doc, err := layout.Extract(context.Background(), opts.input, layout.ExtractOptions{
		MaxPages: opts.pages,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	rep := buildReport(doc, opts.texts)
	rep.File = opts.input
	rep.MD5 = sum

	if opts.asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	writeText(stdout, rep)
	return nil
}

func fileMD5(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("打开文件失败: %w", err)
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("读取文件失败: %w", err)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

func buildReport(doc *layout.Document, withTexts bool) report {
	rep := report{TotalPages: doc.TotalPages}
	for _, page := range doc.Pages {
		pr := pageReport{Index: page.Index, Width: page.Width, Height: page.Height, Blocks: []blockReport{}}
		for _, block := range page.Blocks {
			r := block.Bounds()
			br := blockReport{Kind: block.Kind().String(), BBox: [4]float64{r.X0, r.Y0, r.X1, r.Y1}}
			switch b := block.(type) {
			case *layout.TextBlock:
				br.Text = layout.CanonicalText(b)
				br.Lines = len(b.Lines)
				if span, ok := b.FirstSpan(); ok {
					br.FontName = span.FontName
					br.FontSize = span.FontSize
					br.Color = fmt.Sprintf("#%06x", span.Color)
				}
			case *layout.ImageBlock:
				br.Image = b.Ext
				br.Bytes = len(b.Data)
			}
			pr.Blocks = append(pr.Blocks, br)
		}
		rep.Pages = append(rep.Pages, pr)
	}
	if withTexts {
		rep.UniqueTexts = layout.CollectUniqueTexts(doc).Texts()
	}
	return rep
}

func writeText(w io.Writer, rep report) {
	fmt.Fprintf(w, "文件: %s\nMD5: %s\n总页数: %d\n", rep.File, rep.MD5, rep.TotalPages)
	for _, page := range rep.Pages {
		fmt.Fprintf(w, "\n第 %d 页 (%.0f x %.0f)，%d 个块\n", page.Index, page.Width, page.Height, len(page.Blocks))
		for i, b := range page.Blocks {
			fmt.Fprintf(w, "  [%d] %s (%.1f, %.1f, %.1f, %.1f)", i, b.Kind, b.BBox[0], b.BBox[1], b.BBox[2], b.BBox[3])
			if b.Kind == layout.BlockText.String() {
				fmt.Fprintf(w, " %s %.1fpt %s %q", b.FontName, b.FontSize, b.Color, b.Text)
			} else {
				fmt.Fprintf(w, " %s %d bytes", b.Image, b.Bytes)
			}
			fmt.Fprintln(w)
		}
	}
	if len(rep.UniqueTexts) > 0 {
		fmt.Fprintf(w, "\n唯一文本 %d 条:\n", len(rep.UniqueTexts))
		for _, text := range rep.UniqueTexts {
			fmt.Fprintf(w, "  %q\n", text)
		}
	}
}

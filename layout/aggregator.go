package layout

import (
	"context"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// TextSource 可翻译文本的来源
type TextSource int

const (
	SourceTextBlock TextSource = iota
	SourceOCR
)

// BlockRef 指向产生某段文本的块
type BlockRef struct {
	Page   int // 页码，从 1 开始
	Block  int // 块在页面中的下标
	Source TextSource
}

// TextIndex 去重后的文本集合及其反向索引
type TextIndex struct {
	texts       []string
	occurrences map[string][]BlockRef
}

// CollectUniqueTexts 收集文档中所有唯一的非空文本，按字典序排序。
// 图片的 OCR 文本作为独立条目加入，不参与文本块的键。
func CollectUniqueTexts(doc *Document) *TextIndex {
	idx := &TextIndex{occurrences: make(map[string][]BlockRef)}
	if doc == nil {
		return idx
	}

	for _, page := range doc.Pages {
		for i, block := range page.Blocks {
			var text string
			ref := BlockRef{Page: page.Index, Block: i}
			switch b := block.(type) {
			case *TextBlock:
				text = CanonicalText(b)
				ref.Source = SourceTextBlock
			case *ImageBlock:
				text = strings.TrimSpace(b.OCRText)
				ref.Source = SourceOCR
			}
			if text == "" {
				continue
			}
			idx.occurrences[text] = append(idx.occurrences[text], ref)
		}
	}

	idx.texts = make([]string, 0, len(idx.occurrences))
	for text := range idx.occurrences {
		idx.texts = append(idx.texts, text)
	}
	sort.Strings(idx.texts)
	return idx
}

// Texts 排序后的唯一文本
func (idx *TextIndex) Texts() []string {
	out := make([]string, len(idx.texts))
	copy(out, idx.texts)
	return out
}

// Len 唯一文本数量
func (idx *TextIndex) Len() int {
	return len(idx.texts)
}

// Occurrences 某段文本出现的所有位置
func (idx *TextIndex) Occurrences(text string) []BlockRef {
	return idx.occurrences[text]
}

// TranslateFunc 翻译协作者：必须总是返回结果，失败时返回原文
type TranslateFunc func(ctx context.Context, text string) string

// BuildTranslationMap 对每个唯一文本恰好调用一次 translate，最多 workers 个并发
func BuildTranslationMap(ctx context.Context, idx *TextIndex, workers int, translate TranslateFunc, progress func(done, total int)) TranslationMap {
	texts := idx.Texts()
	results := make([]string, len(texts))

	if workers <= 0 {
		workers = 1
	}

	var (
		mu   sync.Mutex
		done int
	)

	g := new(errgroup.Group)
	g.SetLimit(workers)
	for i, text := range texts {
		i, text := i, text
		g.Go(func() error {
			if ctx.Err() != nil {
				results[i] = text
			} else {
				results[i] = translate(ctx, text)
			}
			if progress != nil {
				mu.Lock()
				done++
				progress(done, len(texts))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	tm := make(TranslationMap, len(texts))
	for i, text := range texts {
		tm[text] = results[i]
	}
	return tm
}

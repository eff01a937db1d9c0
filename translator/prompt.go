package translator

import (
	"fmt"
	"strings"
)

// DefaultTargetLanguage 默认目标语言
const DefaultTargetLanguage = "Hinglish"

// hinglishStyleGuide 罗马字母书写的口语化印地语
const hinglishStyleGuide = `You are a professional English-to-Hindi translator. Translate the following text into **Conversational Hinglish** (Hindi written in Roman script).

**Style Guide**:
- **Grammar**: Use Hindi grammar (SOV structure usually), but keep the flow natural.
- **Vocabulary**: Use English for technical nouns (e.g. 'API', 'Database', 'Laser'). Use Hindi for verbs, adjectives, and connecting words where natural (e.g., 'karna', 'hona', 'accha').
- **Conciseness**: Try to keep the translated length close to the original. Do not add unnecessary filler words.
- **No Transliteration**: Do not just write English words in Hindi script (e.g., don't write "book" as "buk", write "kitaab").`

// sharedRules 所有目标语言通用的输出约束
const sharedRules = `**Strict Rules**:
1. Return ONLY the translated text. Do not add explanations or conversational filler.
2. Keep numbers, table of contents, and symbols EXACTLY as is.
3. Do not translate code or URLs.
4. If the text is a Table of Contents line (e.g., "1. Introduction ..... 5"), keep the structure and only translate the text part.`

// BuildSystemPrompt 生成系统提示词；userPrompt 追加在末尾
func BuildSystemPrompt(targetLanguage, userPrompt string) string {
	var sb strings.Builder
	if targetLanguage == "" || strings.EqualFold(targetLanguage, DefaultTargetLanguage) {
		sb.WriteString(hinglishStyleGuide)
	} else {
		sb.WriteString(fmt.Sprintf("You are a professional translator. Translate the following text to %s. Keep the original meaning and style, and keep the translated length close to the original.", targetLanguage))
	}
	sb.WriteString("\n\n")
	sb.WriteString(sharedRules)
	if userPrompt = strings.TrimSpace(userPrompt); userPrompt != "" {
		sb.WriteString("\n\n")
		sb.WriteString(userPrompt)
	}
	return sb.String()
}

// wrapInput 把待翻译文本包成提示词的输入部分
func wrapInput(text string) string {
	return fmt.Sprintf("Input Text:\n%q", text)
}

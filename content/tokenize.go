package content

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Tokenize 小写化后切分出由字母、数字、下划线组成且长度 >= 2 的词。
func Tokenize(text string) []string {
	text = strings.ToLower(text)
	var out []string
	start := -1
	for i, r := range text {
		if isWordRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			out = appendToken(out, text[start:i])
			start = -1
		}
	}
	if start >= 0 {
		out = appendToken(out, text[start:])
	}
	return out
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}

func appendToken(out []string, tok string) []string {
	if utf8.RuneCountInString(tok) < 2 {
		return out
	}
	return append(out, tok)
}

// Analyze 分词、去停用词后生成 [minN, maxN] 范围内的 n-gram，n-gram 内部以空格连接。
func Analyze(text string, minN, maxN int) []string {
	tokens := Tokenize(text)
	kept := tokens[:0]
	for _, t := range tokens {
		if !IsStopWord(t) {
			kept = append(kept, t)
		}
	}
	if minN < 1 {
		minN = 1
	}
	if maxN < minN {
		maxN = minN
	}
	if maxN == 1 {
		return kept
	}

	grams := make([]string, 0, len(kept)*(maxN-minN+1))
	for n := minN; n <= maxN; n++ {
		for i := 0; i+n <= len(kept); i++ {
			grams = append(grams, strings.Join(kept[i:i+n], " "))
		}
	}
	return grams
}

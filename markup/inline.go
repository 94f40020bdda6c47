package markup

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

var (
	inlineLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Strong", Pattern: `\*\*`},
		{Name: "Emph", Pattern: `\*`},
		{Name: "Text", Pattern: `[^*]+`},
	})

	textTokenType = mustTokenType("Text")
)

// Emphasis 去掉成对的 *x* / **x** 标记，返回纯文本与加粗区间。
// 不成对的标记按字面保留；不支持嵌套，也不跨 chunk 匹配。
func Emphasis(s string) (string, []Span) {
	if !strings.Contains(s, "*") {
		return s, nil
	}
	lex, err := inlineLexer.Lex("", strings.NewReader(s))
	if err != nil {
		return s, nil
	}
	tokens, err := lexer.ConsumeAll(lex)
	if err != nil {
		return s, nil
	}
	// 去掉结尾的 EOF
	for len(tokens) > 0 && tokens[len(tokens)-1].EOF() {
		tokens = tokens[:len(tokens)-1]
	}

	var (
		out   strings.Builder
		spans []Span
	)
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if tok.Type == textTokenType {
			out.WriteString(tok.Value)
			continue
		}
		if i+2 < len(tokens) &&
			tokens[i+1].Type == textTokenType &&
			tokens[i+2].Type == tok.Type &&
			isEmphasisBody(tokens[i+1].Value) {
			start := out.Len()
			out.WriteString(tokens[i+1].Value)
			spans = append(spans, Span{Start: start, End: out.Len()})
			i += 2
			continue
		}
		out.WriteString(tok.Value)
	}
	return out.String(), spans
}

// isEmphasisBody 要求强调内容两端不是空白，避免把 "a * b * c" 当作强调。
func isEmphasisBody(s string) bool {
	return s != "" && strings.TrimSpace(s) == s
}

func mustTokenType(name string) lexer.TokenType {
	tt, ok := inlineLexer.Symbols()[name]
	if !ok {
		panic(fmt.Sprintf("token %s not defined", name))
	}
	return tt
}

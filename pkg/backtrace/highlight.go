package backtrace

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// Line is one rendered source line.
type Line struct {
	// HTML is the highlighted markup of the line.
	HTML string
	// Number is the 1-based line number.
	Number int
}

// HighlightLines renders content line by line, picking the lexer from the
// filename. On any tokenization trouble the line falls back to plain text,
// so the result always has one entry per input line.
func HighlightLines(content, filename string) []Line {
	lexer := lexers.Match(filename)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := styles.Get("github-dark")
	if style == nil {
		style = styles.Fallback
	}
	formatter := html.New(html.InlineCode(true))

	iterator, err := lexer.Tokenise(nil, content)
	if err != nil {
		return plainLines(content)
	}

	var out []Line
	for i, tokens := range chroma.SplitTokensIntoLines(iterator.Tokens()) {
		var sb strings.Builder
		if err := formatter.Format(&sb, style, chroma.Literator(tokens...)); err != nil {
			out = append(out, Line{HTML: lineText(tokens), Number: i + 1})
			continue
		}
		out = append(out, Line{HTML: sb.String(), Number: i + 1})
	}
	return out
}

func plainLines(content string) []Line {
	var out []Line
	for i, line := range strings.Split(content, "\n") {
		out = append(out, Line{HTML: line, Number: i + 1})
	}
	return out
}

func lineText(tokens []chroma.Token) string {
	var sb strings.Builder
	for _, token := range tokens {
		sb.WriteString(token.Value)
	}
	return sb.String()
}

package export

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

var diffFormatter = chromahtml.New(chromahtml.TabWidth(4))

// highlightDiff renders a unified diff as HTML with inline styles, so the
// report needs no external stylesheet when printed to PDF.
func highlightDiff(patch string) (template.HTML, error) {
	if patch == "" {
		return "", nil
	}

	lexer := lexers.Get("diff")
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := styles.Get("github")
	if style == nil {
		style = styles.Fallback
	}

	iterator, err := lexer.Tokenise(nil, patch)
	if err != nil {
		return "", fmt.Errorf("tokenise diff: %w", err)
	}

	var buf bytes.Buffer
	if err := diffFormatter.Format(&buf, style, iterator); err != nil {
		return "", fmt.Errorf("format diff: %w", err)
	}
	return template.HTML(buf.String()), nil
}

package syntax

import (
	stderrors "errors"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/toyz/as2amd/internal/errors"
)

// keywords must be listed before identifiers so `class` never lexes as Ident
const keywords = `\b(?:package|import|class|extends|implements|function|var|const|return|if|else|while|for|` +
	`throw|try|catch|finally|break|continue|new|this|super|true|false|null|public|private|protected|internal|static|final|` +
	`override|dynamic|typeof|instanceof|void)\b`

var (
	asLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Comment", Pattern: `//[^\n]*|/\*(?s:.)*?\*/`},
		{Name: "Whitespace", Pattern: `\s+`},
		{Name: "String", Pattern: `"(?:\\.|[^"\\])*"|'(?:\\.|[^'\\])*'`},
		{Name: "Number", Pattern: `0[xX][0-9a-fA-F]+|[0-9]+(?:\.[0-9]+)?(?:[eE][+-]?[0-9]+)?`},
		{Name: "Keyword", Pattern: keywords},
		{Name: "Ident", Pattern: `[a-zA-Z_$][a-zA-Z0-9_$]*`},
		{Name: "Operator", Pattern: `===|!==|==|!=|<=|>=|&&|\|\||\+\+|--|\+=|-=|\*=|/=|%=|[-+*/%<>=!?]`},
		{Name: "Punct", Pattern: `[{}()\[\];:,.]`},
	})

	fileParser = participle.MustBuild[File](
		participle.Lexer(asLexer),
		participle.Elide("Whitespace", "Comment"),
		participle.UseLookahead(4),
	)
)

// Parser parses source files. The zero value is ready to use and safe for
// concurrent use.
type Parser struct{}

// Parse parses one file. Syntax errors come back as *errors.ParseError
// carrying the position of the offending token.
func (Parser) Parse(filename, text string) (*File, error) {
	return Parse(filename, text)
}

// Parse parses one file with the shared parser
func Parse(filename, text string) (*File, error) {
	file, err := fileParser.ParseString(filename, text)
	if err == nil {
		return file, nil
	}

	line, column, message := 0, 0, err.Error()
	var perr participle.Error
	if stderrors.As(err, &perr) {
		pos := perr.Position()
		line, column, message = pos.Line, pos.Column, perr.Message()
	}
	parseErr := errors.NewParseError(filename, line, column, message)
	parseErr.Cause = err
	return nil, parseErr
}

// Grammar returns the EBNF of the accepted language
func Grammar() string {
	return fileParser.String()
}

package regex

// metacharTokens maps the ASCII metacharacters recognized by the grammar
// to their token type. Anything not in this table is a literal byte.
// Built once at init time as a lookup table rather than a switch, so
// classifying a byte during scanning is a single array index.
var metacharTokens [256]TokenType

func init() {
	for i := range metacharTokens {
		metacharTokens[i] = TokLiteral
	}
	metacharTokens['.'] = TokDot
	metacharTokens[','] = TokComma
	metacharTokens['-'] = TokDash
	metacharTokens['*'] = TokStar
	metacharTokens['+'] = TokPlus
	metacharTokens['?'] = TokQuestion
	metacharTokens['|'] = TokPipe
	metacharTokens['^'] = TokCaret
	metacharTokens['$'] = TokDollar
	metacharTokens['['] = TokLBracket
	metacharTokens[']'] = TokRBracket
	metacharTokens['{'] = TokLBrace
	metacharTokens['}'] = TokRBrace
	metacharTokens['('] = TokLParen
	metacharTokens[')'] = TokRParen
}

// Tokenize scans pattern left to right and returns its token stream,
// terminated by a TokEOF token: a linear scan where `\` escapes the
// following byte and a trailing `\` is an error.
func Tokenize(pattern []byte) ([]Token, error) {
	tokens := make([]Token, 0, len(pattern)+1)

	for i := 0; i < len(pattern); {
		pos := i
		b := pattern[i]

		if b == '\\' {
			if i+1 >= len(pattern) {
				return nil, &ParseError{Code: ErrInvalidEscapeSequence, Message: "trailing backslash at end of pattern", Pos: pos}
			}
			tokens = append(tokens, Token{Type: TokEscaped, Byte: pattern[i+1], Pos: pos})
			i += 2
			continue
		}

		tokens = append(tokens, Token{Type: metacharTokens[b], Byte: b, Pos: pos})
		i++
	}

	tokens = append(tokens, Token{Type: TokEOF, Pos: len(pattern)})
	return tokens, nil
}

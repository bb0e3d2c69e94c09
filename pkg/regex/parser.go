package regex

import (
	"fmt"

	"github.com/aledsdavies/corelib/internal/invariant"
)

// Parse tokenizes and parses pattern into a Regex. Capture-group indices
// are assigned left to right starting at 1, in the order their opening
// `(` is scanned.
func Parse(pattern string) (*Regex, error) {
	tokens, err := Tokenize([]byte(pattern))
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens, seenGroups: make(map[int]bool), nextGroup: 1}
	alt, err := p.parseAlternation(false)
	if err != nil {
		return nil, err
	}

	invariant.Postcondition(len(alt.Branches) > 0, "top-level alternation must have at least one branch")

	return &Regex{Root: *alt, CaptureGroupCount: p.nextGroup - 1, source: pattern}, nil
}

type parser struct {
	tokens []Token
	pos int

	nextGroup int // next capture group index to assign, starts at 1
	seenGroups map[int]bool
}

func (p *parser) peek() Token { return p.tokens[p.pos] }

func (p *parser) advance() Token {
	t := p.tokens[p.pos]
	if t.Type != TokEOF {
		p.pos++
	}
	return t
}

// parseAlternation parses one or more '|'-separated branches. When
// inGroup is true, it stops at the first unmatched ')' (leaving it
// unconsumed for the caller); otherwise it runs to EOF. Empty branches
// are rejected.
func (p *parser) parseAlternation(inGroup bool) (*Alternation, error) {
	alt := &Alternation{}

	for {
		branch, err := p.parseBranch(inGroup)
		if err != nil {
			return nil, err
		}
		alt.Branches = append(alt.Branches, branch)

		if p.peek().Type == TokPipe {
			p.advance()
			continue
		}
		break
	}

	return alt, nil
}

// parseBranch parses a non-empty sequence of quantified atoms, stopping
// at '|', EOF, or (if inGroup) an unmatched ')'.
func (p *parser) parseBranch(inGroup bool) (Branch, error) {
	var branch Branch

	for {
		tt := p.peek().Type
		if tt == TokEOF || tt == TokPipe {
			break
		}
		if tt == TokRParen {
			if inGroup {
				break
			}
			return nil, p.errAt(ErrUnexpectedCloseParen, "unexpected ')' with no matching '('")
		}

		node, err := p.parseAtom()
		if err != nil {
			return nil, err
		}

		node, err = p.maybeQuantify(node)
		if err != nil {
			return nil, err
		}

		branch = append(branch, *node)
	}

	if len(branch) == 0 {
		return nil, p.errAt(ErrUnsupportedToken, "empty alternation branch is not allowed")
	}

	return branch, nil
}

// maybeQuantify wraps node in a NodeQuantified if the next token is '*',
// '+', or '?'. A quantified node is never itself quantified again — a
// second quantifier suffix is a parse error.
func (p *parser) maybeQuantify(node *Node) (*Node, error) {
	var q Quantifier
	switch p.peek().Type {
	case TokStar:
		q = Quantifier{Min: 0, Max: -1, Greedy: true}
	case TokPlus:
		q = Quantifier{Min: 1, Max: -1, Greedy: true}
	case TokQuestion:
		q = Quantifier{Min: 0, Max: 1, Greedy: true}
	default:
		return node, nil
	}
	tok := p.advance()

	if node.Kind == NodeQuantified {
		return nil, &ParseError{Code: ErrUnsupportedToken, Pos: tok.Pos, Message: "a quantifier cannot directly follow another quantifier"}
	}

	switch p.peek().Type {
	case TokStar, TokPlus, TokQuestion:
		return nil, &ParseError{Code: ErrUnsupportedToken, Pos: p.peek().Pos, Message: "stacked quantifiers are not supported"}
	}

	return &Node{Kind: NodeQuantified, Quant: q, Inner: node}, nil
}

// parseAtom dispatches on the next token to produce one unquantified
// node.
func (p *parser) parseAtom() (*Node, error) {
	tok := p.peek()

	switch tok.Type {
	case TokLiteral:
		p.advance()
		return &Node{Kind: NodeLiteral, Literal: tok.Byte}, nil

	case TokDash:
		// outside a character class, '-' is just a literal
		p.advance()
		return &Node{Kind: NodeLiteral, Literal: '-'}, nil

	case TokComma:
		p.advance()
		return &Node{Kind: NodeLiteral, Literal: ','}, nil

	case TokDot:
		p.advance()
		return &Node{Kind: NodeDot}, nil

	case TokCaret:
		p.advance()
		return &Node{Kind: NodeStartAnchor}, nil

	case TokDollar:
		p.advance()
		return &Node{Kind: NodeEndAnchor}, nil

	case TokEscaped:
		return p.parseEscapeAtom(tok)

	case TokLBracket:
		return p.parseCharacterClass()

	case TokLParen:
		return p.parseCaptureGroup()

	case TokRBracket, TokRBrace, TokLBrace:
		// These only have meaning inside a character class / quantifier
		// suffix (unsupported in this cut); bare outside that context
		// they are unsupported tokens.
		return nil, p.errAt(ErrUnsupportedToken, "unsupported token %q", tok.Type.String())

	default:
		return nil, p.errAt(ErrUnsupportedToken, "unsupported token %q", tok.Type.String())
	}
}

// parseEscapeAtom handles a top-level (outside-class) `\x` atom: `\w`,
// `\d`, a digit 1-9 backreference, or a literal escape of a printable
// byte.
func (p *parser) parseEscapeAtom(tok Token) (*Node, error) {
	p.advance()

	switch tok.Byte {
	case 'w':
		return &Node{Kind: NodeCharClass, Class: wordClass()}, nil
	case 'd':
		return &Node{Kind: NodeCharClass, Class: digitClass()}, nil
	}

	if tok.Byte >= '1' && tok.Byte <= '9' {
		n := int(tok.Byte - '0')
		if !p.seenGroups[n] {
			return nil, &ParseError{Code: ErrUnsupportedEscape, Pos: tok.Pos, Message: "back-reference to group that has not closed yet"}
		}
		return &Node{Kind: NodeBackreference, Backref: n}, nil
	}

	if isWhitelistedLiteralEscape(tok.Byte) {
		return &Node{Kind: NodeLiteral, Literal: tok.Byte}, nil
	}

	return nil, &ParseError{Code: ErrUnsupportedEscape, Pos: tok.Pos, Message: "unsupported escape sequence"}
}

// isWhitelistedLiteralEscape reports whether escaping b outside a
// character class is accepted as a literal b, rather than rejected.
// Metacharacters and any printable ASCII byte may always be escaped to
// mean themselves; escapes with a reserved meaning (w, d, 1-9) never
// reach this check, since parseEscapeAtom handles those first.
func isWhitelistedLiteralEscape(b byte) bool {
	return b >= 0x20 && b < 0x7f
}

// parseCaptureGroup parses `( alt )`, assigning the next 1-based capture
// index before recursing, so indices follow the order of the opening
// `(`. A back-reference inside the body can refer only to groups that
// have already closed, not to this group or to any enclosing one: we
// reject `(a\1)`, since group 1 has not finished capturing when `\1` is
// reached — `seenGroups` is only set after the body is fully parsed.
func (p *parser) parseCaptureGroup() (*Node, error) {
	openTok := p.advance() // consume '('
	index := p.nextGroup
	p.nextGroup++

	body, err := p.parseAlternation(true)
	if err != nil {
		return nil, err
	}

	if p.peek().Type != TokRParen {
		return nil, &ParseError{Code: ErrUnclosedParenthesis, Pos: openTok.Pos, Message: "unclosed '('"}
	}
	p.advance() // consume ')'

	p.seenGroups[index] = true

	return &Node{Kind: NodeCaptureGroup, GroupIndex: index, Group: body}, nil
}

// parseCharacterClass parses `[ '^'? member+ ']'`.
func (p *parser) parseCharacterClass() (*Node, error) {
	openTok := p.advance() // consume '['

	class := &CharacterClass{}
	if p.peek().Type == TokCaret {
		p.advance()
		class.Negated = true
	}

	for {
		tt := p.peek().Type
		if tt == TokEOF {
			return nil, &ParseError{Code: ErrUnclosedCharacterClass, Pos: openTok.Pos, Message: "unclosed '['"}
		}
		if tt == TokRBracket {
			break
		}

		if err := p.parseClassMember(class); err != nil {
			return nil, err
		}
	}

	p.advance() // consume ']'
	return &Node{Kind: NodeCharClass, Class: class}, nil
}

// parseClassMember consumes one member of a character class: `\w`/`\d`
// expand inline, `a-b` forms a range when both sides are literal bytes,
// any other escape is a literal byte, and a bare byte is a single-byte
// member unless followed by '-' and another literal (a range).
func (p *parser) parseClassMember(class *CharacterClass) error {
	tok := p.advance()

	if tok.Type == TokEscaped {
		switch tok.Byte {
		case 'w':
			class.Members = append(class.Members, wordClass().Members...)
			return nil
		case 'd':
			class.Members = append(class.Members, digitClass().Members...)
			return nil
		}
		// any other escape inside a class is a literal byte
		class.Members = append(class.Members, ClassMember{tok.Byte, tok.Byte})
		return nil
	}

	if !isClassLiteralToken(tok.Type) {
		return &ParseError{Code: ErrUnsupportedCharacterClassToken, Pos: tok.Pos, Message: "unsupported token inside character class"}
	}

	lo := tok.Byte

	// Look for 'a-b': a dash followed by a literal byte that is not the
	// closing ']'.
	if p.peek().Type == TokDash {
		savedPos := p.pos
		p.advance() // tentatively consume '-'
		if p.peek().Type == TokRBracket {
			// '-' right before ']' is a literal dash, not a range.
			p.pos = savedPos
			class.Members = append(class.Members, ClassMember{lo, lo})
			return nil
		}
		hiTok := p.advance()
		if hiTok.Type == TokEscaped || (hiTok.Type != TokLiteral && hiTok.Type != TokDash && hiTok.Type != TokComma) {
			return &ParseError{Code: ErrUnsupportedCharacterClassToken, Pos: hiTok.Pos, Message: "range endpoint must be a literal byte"}
		}
		hi := hiTok.Byte
		if hi < lo {
			return &ParseError{Code: ErrUnsupportedCharacterClassToken, Pos: hiTok.Pos, Message: "character range is out of order"}
		}
		class.Members = append(class.Members, ClassMember{lo, hi})
		return nil
	}

	class.Members = append(class.Members, ClassMember{lo, lo})
	return nil
}

// isClassLiteralToken reports whether tt may stand for its own byte value
// as a plain (non-range-forming) member inside a character class. Every
// token type except '[' and EOF qualifies: RBracket closes the class
// before this is reached, so in practice this just excludes control
// tokens that can't appear here at all.
func isClassLiteralToken(tt TokenType) bool {
	switch tt {
	case TokLiteral, TokDash, TokComma, TokCaret, TokDollar, TokDot,
		TokStar, TokPlus, TokQuestion, TokPipe, TokLParen, TokRParen,
		TokLBrace, TokRBrace:
		return true
	default:
		return false
	}
}

func (p *parser) errAt(code ErrorCode, format string, args...interface{}) *ParseError {
	pos := p.peek().Pos
	return &ParseError{Code: code, Pos: pos, Message: fmt.Sprintf(format, args...)}
}

package queryir

import (
	"fmt"
	"strings"

	"github.com/roach88/recordgraph/internal/ir"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokNumber
	tokDate
	tokEnum
	tokLParen
	tokRParen
	tokComma
	tokSlash
	tokColon
	tokMinus
)

type token struct {
	kind tokenKind
	text string // raw text; for tokEnum the type name
	enum string // tokEnum value
	pos  int
}

// tokenize breaks filter text into tokens while preserving quoted strings.
func tokenize(src string) ([]token, error) {
	var tokens []token

	for i := 0; i < len(src); {
		ch := src[i]

		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			i++
		case ch == '(':
			tokens = append(tokens, token{kind: tokLParen, text: "(", pos: i})
			i++
		case ch == ')':
			tokens = append(tokens, token{kind: tokRParen, text: ")", pos: i})
			i++
		case ch == ',':
			tokens = append(tokens, token{kind: tokComma, text: ",", pos: i})
			i++
		case ch == '/':
			tokens = append(tokens, token{kind: tokSlash, text: "/", pos: i})
			i++
		case ch == ':':
			tokens = append(tokens, token{kind: tokColon, text: ":", pos: i})
			i++
		case ch == '-':
			tokens = append(tokens, token{kind: tokMinus, text: "-", pos: i})
			i++
		case ch == '\'':
			end, err := scanQuoted(src, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokString, text: src[i:end], pos: i})
			i = end
		case isDigit(ch):
			start := i
			if isDate(src[i:]) {
				i += len(ir.DateLayout)
				tokens = append(tokens, token{kind: tokDate, text: src[start:i], pos: start})
				continue
			}
			for i < len(src) && isDigit(src[i]) {
				i++
			}
			// Fractions and exponents are lexed so NewLiteral can reject them.
			if i+1 < len(src) && src[i] == '.' && isDigit(src[i+1]) {
				i++
				for i < len(src) && isDigit(src[i]) {
					i++
				}
			}
			if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
				i++
				for i < len(src) && (isDigit(src[i]) || src[i] == '+' || src[i] == '-') {
					i++
				}
			}
			tokens = append(tokens, token{kind: tokNumber, text: src[start:i], pos: start})
		case isIdentStart(ch):
			start := i
			for i < len(src) && isIdentPart(src[i]) {
				i++
			}
			name := src[start:i]
			// Namespace.Type'Value' is an enum literal.
			if i < len(src) && src[i] == '\'' && strings.Contains(name, ".") {
				end, err := scanQuoted(src, i)
				if err != nil {
					return nil, err
				}
				tokens = append(tokens, token{kind: tokEnum, text: name, enum: src[i+1 : end-1], pos: start})
				i = end
				continue
			}
			tokens = append(tokens, token{kind: tokIdent, text: name, pos: start})
		default:
			return nil, ir.NewInvalidArgument("filter: unexpected character %q at %d", ch, i)
		}
	}

	return append(tokens, token{kind: tokEOF, pos: len(src)}), nil
}

// scanQuoted returns the index just past the closing quote of the string
// starting at src[start]. A doubled quote is an escaped quote.
func scanQuoted(src string, start int) (int, error) {
	for i := start + 1; i < len(src); i++ {
		if src[i] != '\'' {
			continue
		}
		if i+1 < len(src) && src[i+1] == '\'' {
			i++
			continue
		}
		return i + 1, nil
	}
	return 0, ir.NewInvalidArgument("filter: unterminated string at %d", start)
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func isIdentStart(ch byte) bool {
	return ch == '_' || ch == '@' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch) || ch == '.'
}

// isDate reports whether s starts with NNNN-NN-NN not followed by a digit.
func isDate(s string) bool {
	if len(s) < len(ir.DateLayout) {
		return false
	}
	for i := 0; i < len(ir.DateLayout); i++ {
		if ir.DateLayout[i] == '-' {
			if s[i] != '-' {
				return false
			}
		} else if !isDigit(s[i]) {
			return false
		}
	}
	return len(s) == len(ir.DateLayout) || !isDigit(s[len(ir.DateLayout)])
}

// ParseFilter parses filter text into an expression tree.
//
// Precedence, lowest first: or, and, comparison (eq ne gt ge lt le has),
// additive (add sub), multiplicative (mul div mod), unary (not, -).
// Numeric literals that are not integers fail with NOT_IMPLEMENTED; all
// other syntax errors are INVALID_ARGUMENT. Empty text yields a nil tree.
func ParseFilter(src string) (Expr, error) {
	if strings.TrimSpace(src) == "" {
		return nil, nil
	}

	tokens, err := tokenize(src)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, p.unexpected(tok)
	}
	return expr, nil
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token { return p.tokens[p.pos] }

func (p *parser) peekAt(n int) token {
	if p.pos+n < len(p.tokens) {
		return p.tokens[p.pos+n]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	tok := p.next()
	if tok.kind != kind {
		return token{}, ir.NewInvalidArgument("filter: expected %s at %d, got %s", what, tok.pos, describe(tok))
	}
	return tok, nil
}

func (p *parser) unexpected(tok token) error {
	return ir.NewInvalidArgument("filter: unexpected %s at %d", describe(tok), tok.pos)
}

func describe(tok token) string {
	if tok.kind == tokEOF {
		return "end of input"
	}
	return fmt.Sprintf("%q", tok.text)
}

// keyword reports whether the next token is the given operator word.
func (p *parser) keyword(word string) bool {
	tok := p.peek()
	return tok.kind == tokIdent && tok.text == word
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.keyword("or") {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: OpOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.keyword("and") {
		p.next()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: OpAnd, Left: left, Right: right}
	}
	return left, nil
}

var comparisonOps = map[string]BinaryOp{
	"eq":  OpEq,
	"ne":  OpNe,
	"gt":  OpGt,
	"ge":  OpGe,
	"lt":  OpLt,
	"le":  OpLe,
	"has": OpHas,
}

func (p *parser) parseComparison() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	tok := p.peek()
	if tok.kind != tokIdent {
		return left, nil
	}
	op, ok := comparisonOps[tok.text]
	if !ok {
		return left, nil
	}
	p.next()
	right, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	return Binary{Op: op, Left: left, Right: right}, nil
}

func (p *parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.keyword("add") || p.keyword("sub") {
		op := BinaryOp(p.next().text)
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.keyword("mul") || p.keyword("div") || p.keyword("mod") {
		op := BinaryOp(p.next().text)
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (Expr, error) {
	switch {
	case p.keyword("not"):
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return Unary{Op: OpNot, Operand: operand}, nil
	case p.peek().kind == tokMinus:
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return Unary{Op: OpMinus, Operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, error) {
	tok := p.next()

	switch tok.kind {
	case tokLParen:
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return expr, nil
	case tokString:
		return NewLiteral(KindString, tok.text)
	case tokNumber:
		return NewLiteral(KindNumber, tok.text)
	case tokDate:
		return NewLiteral(KindDate, tok.text)
	case tokEnum:
		return Enum{Type: tok.text, Value: tok.enum}, nil
	case tokIdent:
		return p.parseIdent(tok)
	default:
		return nil, p.unexpected(tok)
	}
}

func (p *parser) parseIdent(tok token) (Expr, error) {
	switch tok.text {
	case "true", "false":
		return NewLiteral(KindBoolean, tok.text)
	case "null":
		return NewLiteral(KindNull, tok.text)
	}

	if strings.HasPrefix(tok.text, "@") {
		return Alias{Name: tok.text[1:]}, nil
	}

	if p.peek().kind == tokLParen {
		p.next()
		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		return Call{Name: tok.text, Args: args}, nil
	}

	// A qualified name on its own is a type name, as in isof(Namespace.Policy).
	if strings.Contains(tok.text, ".") {
		return TypeLiteral{Name: tok.text}, nil
	}

	path := []string{tok.text}
	for p.peek().kind == tokSlash {
		p.next()
		seg, err := p.expect(tokIdent, "property name")
		if err != nil {
			return nil, err
		}
		if (seg.text == "any" || seg.text == "all") && p.peek().kind == tokLParen {
			return p.parseLambda(Member{Path: path}, seg.text)
		}
		path = append(path, seg.text)
	}
	return Member{Path: path}, nil
}

func (p *parser) parseArgs() ([]Expr, error) {
	var args []Expr
	if p.peek().kind == tokRParen {
		p.next()
		return args, nil
	}
	for {
		arg, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)

		tok := p.next()
		switch tok.kind {
		case tokComma:
			continue
		case tokRParen:
			return args, nil
		default:
			return nil, ir.NewInvalidArgument("filter: expected ',' or ')' at %d, got %s", tok.pos, describe(tok))
		}
	}
}

// parseLambda parses Nav/any(v: body) into Call{any, [Nav, v, body]}.
func (p *parser) parseLambda(source Member, name string) (Expr, error) {
	p.next() // (
	if p.peek().kind == tokRParen {
		p.next()
		return Call{Name: name, Args: []Expr{source}}, nil
	}
	v, err := p.expect(tokIdent, "lambda variable")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokColon, "':'"); err != nil {
		return nil, err
	}
	body, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokRParen, "')'"); err != nil {
		return nil, err
	}
	return Call{Name: name, Args: []Expr{source, LambdaRef{Name: v.text}, body}}, nil
}

// ParseOrderBy parses "Name [asc|desc], ..." into ordering keys.
// Empty text yields no keys.
func ParseOrderBy(src string) ([]OrderKey, error) {
	if strings.TrimSpace(src) == "" {
		return nil, nil
	}

	var keys []OrderKey
	for _, part := range strings.Split(src, ",") {
		fields := strings.Fields(part)
		switch {
		case len(fields) == 1:
			keys = append(keys, OrderKey{Property: fields[0]})
		case len(fields) == 2 && strings.EqualFold(fields[1], "asc"):
			keys = append(keys, OrderKey{Property: fields[0]})
		case len(fields) == 2 && strings.EqualFold(fields[1], "desc"):
			keys = append(keys, OrderKey{Property: fields[0], Descending: true})
		default:
			return nil, ir.NewInvalidArgument("orderby: cannot parse %q", strings.TrimSpace(part))
		}
	}
	return keys, nil
}

// ParseList splits a comma-separated select/expand list, dropping blanks.
func ParseList(src string) []string {
	var out []string
	for _, part := range strings.Split(src, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

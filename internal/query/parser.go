package query

import (
	"strconv"
	"strings"

	"github.com/dreamware/torusdb/internal/types"
)

// Grammar (an IRI disambiguates a URL Start from a bare predicate
// Start, the same convention Turtle/SPARQL use). Filters and projects
// attach directly to the segment they refine; only a Follow needs a
// leading '.':
//
//	query   := start segment*
//	segment := filter | project | '.' follow
//	start   := iri | ident
//	follow  := ['^'] ident
//	filter  := '[' '?' ident op value ']'
//	project := '{' ident (',' ident)* '}'
//	iri     := '<' [^>]* '>'
//	ident   := letter (letter|digit|'_'|'-')*
//	op      := '=' | '!=' | '<=' | '>=' | '<' | '>'
//	value   := string | number | bool | iri
//	string  := '"' [^"]* '"'

type parser struct {
	src string
	pos int
}

// Parse compiles a query string into an AST.
func Parse(src string) (*AST, error) {
	p := &parser{src: src}
	ast := &AST{}

	start, err := p.parseStart()
	if err != nil {
		return nil, err
	}
	ast.Nodes = append(ast.Nodes, start)

	for !p.atEnd() {
		var seg Node
		var err error
		switch p.peek() {
		case '[':
			seg, err = p.parseFilter()
		case '{':
			seg, err = p.parseProject()
		case '.':
			p.pos++
			seg, err = p.parseFollow()
		default:
			return nil, ParseError(p.pos, "'.', '[', or '{'")
		}
		if err != nil {
			return nil, err
		}
		ast.Nodes = append(ast.Nodes, seg)
	}
	return ast, nil
}

func (p *parser) atEnd() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte {
	if p.atEnd() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) parseStart() (Node, error) {
	if p.atEnd() {
		return nil, ParseError(p.pos, "start (IRI or predicate name)")
	}
	if p.peek() == '<' {
		iri, err := p.parseIRI()
		if err != nil {
			return nil, err
		}
		return Start{ID: types.EntityId(iri), IsID: true}, nil
	}
	ident, err := p.parseIdent()
	if err != nil {
		return nil, err
	}
	return Start{Predicate: types.Predicate(ident), IsID: false}, nil
}

// parseFollow parses the segment immediately after a '.': a predicate
// name, optionally '^'-prefixed to mean a reverse (OSP) follow.
func (p *parser) parseFollow() (Node, error) {
	switch p.peek() {
	case '^':
		p.pos++
		ident, err := p.parseIdent()
		if err != nil {
			return nil, err
		}
		return Follow{Predicate: types.Predicate(ident), Reverse: true}, nil
	default:
		ident, err := p.parseIdent()
		if err != nil {
			return nil, err
		}
		return Follow{Predicate: types.Predicate(ident)}, nil
	}
}

func (p *parser) parseFilter() (Node, error) {
	p.pos++ // '['
	if p.peek() != '?' {
		return nil, ParseError(p.pos, "'?'")
	}
	p.pos++
	predicate, err := p.parseIdent()
	if err != nil {
		return nil, err
	}
	op, err := p.parseOp()
	if err != nil {
		return nil, err
	}
	value, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	if p.peek() != ']' {
		return nil, ParseError(p.pos, "']'")
	}
	p.pos++
	return Filter{Predicate: types.Predicate(predicate), Op: op, Value: value}, nil
}

func (p *parser) parseProject() (Node, error) {
	p.pos++ // '{'
	var fields []types.Predicate
	for {
		ident, err := p.parseIdent()
		if err != nil {
			return nil, err
		}
		fields = append(fields, types.Predicate(ident))
		if p.peek() == ',' {
			p.pos++
			continue
		}
		break
	}
	if p.peek() != '}' {
		return nil, ParseError(p.pos, "'}'")
	}
	p.pos++
	return Project{Fields: fields}, nil
}

func (p *parser) parseOp() (Op, error) {
	rest := p.src[p.pos:]
	switch {
	case strings.HasPrefix(rest, "!="):
		p.pos += 2
		return OpNe, nil
	case strings.HasPrefix(rest, "<="):
		p.pos += 2
		return OpLe, nil
	case strings.HasPrefix(rest, ">="):
		p.pos += 2
		return OpGe, nil
	case strings.HasPrefix(rest, "="):
		p.pos++
		return OpEq, nil
	case strings.HasPrefix(rest, "<"):
		p.pos++
		return OpLt, nil
	case strings.HasPrefix(rest, ">"):
		p.pos++
		return OpGt, nil
	default:
		return "", ParseError(p.pos, "comparison operator")
	}
}

func (p *parser) parseValue() (types.TypedObject, error) {
	switch {
	case p.peek() == '"':
		return p.parseStringValue()
	case p.peek() == '<':
		iri, err := p.parseIRI()
		if err != nil {
			return types.TypedObject{}, err
		}
		return types.RefValue(types.EntityId(iri)), nil
	case strings.HasPrefix(p.src[p.pos:], "true"):
		p.pos += 4
		return types.BoolValue(true), nil
	case strings.HasPrefix(p.src[p.pos:], "false"):
		p.pos += 5
		return types.BoolValue(false), nil
	default:
		return p.parseNumberValue()
	}
}

func (p *parser) parseStringValue() (types.TypedObject, error) {
	p.pos++ // opening quote
	start := p.pos
	for !p.atEnd() && p.peek() != '"' {
		p.pos++
	}
	if p.atEnd() {
		return types.TypedObject{}, ParseError(p.pos, "closing '\"'")
	}
	s := p.src[start:p.pos]
	p.pos++ // closing quote
	return types.StringValue(s), nil
}

func (p *parser) parseNumberValue() (types.TypedObject, error) {
	start := p.pos
	if p.peek() == '-' {
		p.pos++
	}
	sawDigit := false
	for !p.atEnd() && isDigit(p.peek()) {
		p.pos++
		sawDigit = true
	}
	isFloat := false
	if !p.atEnd() && p.peek() == '.' && p.pos+1 < len(p.src) && isDigit(p.src[p.pos+1]) {
		isFloat = true
		p.pos++
		for !p.atEnd() && isDigit(p.peek()) {
			p.pos++
		}
	}
	if !sawDigit {
		return types.TypedObject{}, ParseError(p.pos, "number, string, bool, or IRI")
	}
	text := p.src[start:p.pos]
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return types.TypedObject{}, ParseError(start, "well-formed float")
		}
		return types.Float64Value(f), nil
	}
	i, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return types.TypedObject{}, ParseError(start, "well-formed integer")
	}
	return types.Int64Value(i), nil
}

func (p *parser) parseIRI() (string, error) {
	p.pos++ // '<'
	start := p.pos
	for !p.atEnd() && p.peek() != '>' {
		p.pos++
	}
	if p.atEnd() {
		return "", ParseError(p.pos, "closing '>'")
	}
	iri := p.src[start:p.pos]
	p.pos++ // '>'
	if iri == "" {
		return "", ParseError(start, "non-empty IRI")
	}
	return iri, nil
}

func (p *parser) parseIdent() (string, error) {
	start := p.pos
	for !p.atEnd() && isIdentRune(p.peek()) {
		p.pos++
	}
	if p.pos == start {
		return "", ParseError(p.pos, "identifier")
	}
	return p.src[start:p.pos], nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isIdentRune(b byte) bool {
	return b == '_' || b == '-' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || isDigit(b)
}

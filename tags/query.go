package tags

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/timtadh/lexmachine"
	"github.com/timtadh/lexmachine/machines"
)

const (
	TOKEN_TAG = iota
	TOKEN_AND
	TOKEN_OR
	TOKEN_NOT
	TOKEN_LPAREN
	TOKEN_RPAREN
)

var lexer *lexmachine.Lexer

func init() {
	lexer = lexmachine.NewLexer()
	lexer.Add([]byte(`[a-zA-Z_][a-zA-Z0-9_]*`), getToken(TOKEN_TAG))
	lexer.Add([]byte(`&&`), getToken(TOKEN_AND))
	lexer.Add([]byte(`\|\|`), getToken(TOKEN_OR))
	lexer.Add([]byte(`!`), getToken(TOKEN_NOT))
	lexer.Add([]byte(`\(`), getToken(TOKEN_LPAREN))
	lexer.Add([]byte(`\)`), getToken(TOKEN_RPAREN))
	lexer.Add([]byte(`\s+`), skip)
}

func getToken(tokenType int) lexmachine.Action {
	return func(s *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
		return s.Token(tokenType, string(m.Bytes), m), nil
	}
}

func skip(scan *lexmachine.Scanner, match *machines.Match) (interface{}, error) {
	return nil, nil
}

// Query is a compiled tag expression
type Query interface {
	Match(tags map[string]struct{}) bool
}

type tagQuery string

func (q tagQuery) Match(tags map[string]struct{}) bool {
	_, ok := tags[string(q)]
	return ok
}

type notQuery struct{ q Query }

func (q notQuery) Match(tags map[string]struct{}) bool { return !q.q.Match(tags) }

type andQuery struct{ l, r Query }

func (q andQuery) Match(tags map[string]struct{}) bool { return q.l.Match(tags) && q.r.Match(tags) }

type orQuery struct{ l, r Query }

func (q orQuery) Match(tags map[string]struct{}) bool { return q.l.Match(tags) || q.r.Match(tags) }

func tokenize(text string) ([]*lexmachine.Token, error) {
	scanner, err := lexer.Scanner([]byte(text))
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to create lexer scanner")
	}

	result := make([]*lexmachine.Token, 0, 8)
	for itok, err, eos := scanner.Next(); !eos; itok, err, eos = scanner.Next() {
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to parse token")
		}
		result = append(result, itok.(*lexmachine.Token))
	}
	return result, nil
}

type parser struct {
	toks []*lexmachine.Token
	pos  int
}

func (p *parser) peek() *lexmachine.Token {
	if p.pos >= len(p.toks) {
		return nil
	}
	return p.toks[p.pos]
}

func (p *parser) parseOr() (Query, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for tok := p.peek(); tok != nil && tok.Type == TOKEN_OR; tok = p.peek() {
		p.pos++
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orQuery{left, right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Query, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for tok := p.peek(); tok != nil && tok.Type == TOKEN_AND; tok = p.peek() {
		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = andQuery{left, right}
	}
	return left, nil
}

func (p *parser) parseUnary() (Query, error) {
	tok := p.peek()
	if tok == nil {
		return nil, errors.Errorf("Unexpected end of query")
	}
	p.pos++

	switch tok.Type {
	case TOKEN_NOT:
		q, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return notQuery{q}, nil
	case TOKEN_TAG:
		return tagQuery(tok.Lexeme), nil
	case TOKEN_LPAREN:
		q, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if closing := p.peek(); closing == nil || closing.Type != TOKEN_RPAREN {
			return nil, errors.Errorf("Missed ')' for '(' at column %v", tok.StartColumn)
		}
		p.pos++
		return q, nil
	default:
		return nil, errors.Errorf("Unexpected %q at column %v", tok.Lexeme, tok.StartColumn)
	}
}

// ParseQuery compiles expressions like "added && !(modified || hidden)"
func ParseQuery(text string) (Query, error) {
	toks, err := tokenize(text)
	if err != nil {
		return nil, err
	}
	if len(toks) == 0 {
		return nil, errors.Errorf("Empty query")
	}

	p := &parser{toks: toks}
	q, err := p.parseOr()
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to parse query %q", text)
	}
	if tok := p.peek(); tok != nil {
		return nil, errors.Errorf("Unexpected %q at column %v in query %q", tok.Lexeme, tok.StartColumn, text)
	}
	return q, nil
}

var queryCache sync.Map

func compiled(text string) (Query, error) {
	if q, ok := queryCache.Load(text); ok {
		return q.(Query), nil
	}
	q, err := ParseQuery(text)
	if err != nil {
		return nil, err
	}
	queryCache.Store(text, q)
	return q, nil
}

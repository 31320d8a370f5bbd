package exprlang

import "fmt"

var builtins = map[string]int{ // name -> arity, -1 means variadic-ish (min/max take 2+)
	"len":   1,
	"float": 1,
	"int":   1,
	"str":   1,
	"abs":   1,
	"min":   -1,
	"max":   -1,
}

type parser struct {
	lex *lexer
	cur token
}

func parse(src string) (node, error) {
	p := &parser{lex: newLexer(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	n, err := p.parseConditional()
	if err != nil {
		return nil, err
	}
	if p.cur.kind != tokEOF {
		return nil, fmt.Errorf("unexpected trailing input at token kind %d", p.cur.kind)
	}
	return n, nil
}

func (p *parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.cur = tok
	return nil
}

func (p *parser) expect(k tokenKind) error {
	if p.cur.kind != k {
		return fmt.Errorf("expected token %d, got %d", k, p.cur.kind)
	}
	return p.advance()
}

// parseConditional: or ( '?' conditional ':' conditional )?
func (p *parser) parseConditional() (node, error) {
	cond, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.cur.kind == tokQuestion {
		if err := p.advance(); err != nil {
			return nil, err
		}
		then, err := p.parseConditional()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokColon); err != nil {
			return nil, err
		}
		els, err := p.parseConditional()
		if err != nil {
			return nil, err
		}
		return condExpr{cond: cond, then: then, els: els}, nil
	}
	return cond, nil
}

func (p *parser) parseOr() (node, error) {
	x, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur.kind == tokOr {
		if err := p.advance(); err != nil {
			return nil, err
		}
		y, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		x = binaryOp{op: "or", x: x, y: y}
	}
	return x, nil
}

func (p *parser) parseAnd() (node, error) {
	x, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.cur.kind == tokAnd {
		if err := p.advance(); err != nil {
			return nil, err
		}
		y, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		x = binaryOp{op: "and", x: x, y: y}
	}
	return x, nil
}

func (p *parser) parseNot() (node, error) {
	if p.cur.kind == tokNot {
		if err := p.advance(); err != nil {
			return nil, err
		}
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return unaryOp{op: "not", x: x}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (node, error) {
	x, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	ops := map[tokenKind]string{tokEq: "==", tokNeq: "!=", tokLt: "<", tokLte: "<=", tokGt: ">", tokGte: ">="}
	if op, ok := ops[p.cur.kind]; ok {
		if err := p.advance(); err != nil {
			return nil, err
		}
		y, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return binaryOp{op: op, x: x, y: y}, nil
	}
	return x, nil
}

func (p *parser) parseAdditive() (node, error) {
	x, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.cur.kind == tokPlus || p.cur.kind == tokMinus {
		op := "+"
		if p.cur.kind == tokMinus {
			op = "-"
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		y, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		x = binaryOp{op: op, x: x, y: y}
	}
	return x, nil
}

func (p *parser) parseMultiplicative() (node, error) {
	x, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	ops := map[tokenKind]string{tokStar: "*", tokSlash: "/", tokPercent: "%"}
	for {
		op, ok := ops[p.cur.kind]
		if !ok {
			return x, nil
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		y, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		x = binaryOp{op: op, x: x, y: y}
	}
}

func (p *parser) parseUnary() (node, error) {
	if p.cur.kind == tokMinus {
		if err := p.advance(); err != nil {
			return nil, err
		}
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return unaryOp{op: "-", x: x}, nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (node, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur.kind {
		case tokDot:
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.cur.kind != tokIdent {
				return nil, fmt.Errorf("expected identifier after '.'")
			}
			name := p.cur.text
			if err := p.advance(); err != nil {
				return nil, err
			}
			x = memberAccess{target: x, key: identifier{name: name}}
		case tokLBracket:
			if err := p.advance(); err != nil {
				return nil, err
			}
			key, err := p.parseConditional()
			if err != nil {
				return nil, err
			}
			if err := p.expect(tokRBracket); err != nil {
				return nil, err
			}
			x = memberAccess{target: x, key: key}
		default:
			return x, nil
		}
	}
}

func (p *parser) parsePrimary() (node, error) {
	switch p.cur.kind {
	case tokNumber:
		v := p.cur.num
		if err := p.advance(); err != nil {
			return nil, err
		}
		return numberLit{value: v}, nil
	case tokString:
		v := p.cur.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return stringLit{value: v}, nil
	case tokTrue:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return boolLit{value: true}, nil
	case tokFalse:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return boolLit{value: false}, nil
	case tokNull:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return nullLit{}, nil
	case tokLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		x, err := p.parseConditional()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return x, nil
	case tokIdent:
		name := p.cur.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.kind == tokLParen {
			if _, ok := builtins[name]; !ok {
				return nil, fmt.Errorf("unknown function %q; no user-defined functions permitted", name)
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
			var args []node
			for p.cur.kind != tokRParen {
				arg, err := p.parseConditional()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if p.cur.kind == tokComma {
					if err := p.advance(); err != nil {
						return nil, err
					}
				}
			}
			if err := p.advance(); err != nil { // consume ')'
				return nil, err
			}
			return callExpr{fn: name, args: args}, nil
		}
		return identifier{name: name}, nil
	default:
		return nil, fmt.Errorf("unexpected token kind %d", p.cur.kind)
	}
}

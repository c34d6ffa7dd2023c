package expr

import (
	"fmt"
	"strconv"
	"strings"
)

// Binding power of the infix operators; higher binds tighter. The ternary
// operator sits below all of them.
var binaryPrec = map[string]int{
	"??": 1,
	"||": 2,
	"&&": 3,
	"==": 4, "!=": 4, "===": 4, "!==": 4,
	"<": 5, "<=": 5, ">": 5, ">=": 5,
	"+": 6, "-": 6,
	"*": 7, "/": 7, "%": 7,
}

// Parse parses an expression. Blank input parses to a null literal.
func Parse(src string) (Node, error) {
	if strings.TrimSpace(src) == "" {
		return &Literal{Value: NoneValue{}}, nil
	}
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	n, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, p.unexpected(t)
	}
	return n, nil
}

type parser struct {
	toks []token
	i    int
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) advance() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) isOp(op string) bool {
	t := p.peek()
	return t.kind == tokOp && t.val == op
}

func (p *parser) expect(op string) (token, error) {
	if !p.isOp(op) {
		t := p.peek()
		if t.kind == tokEOF {
			return t, &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("expected %q, got end of expression", op)}
		}
		return t, &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("expected %q, got %q", op, t.val)}
	}
	return p.advance(), nil
}

func (p *parser) unexpected(t token) error {
	if t.kind == tokEOF {
		return &SyntaxError{Pos: t.pos, Msg: "unexpected end of expression"}
	}
	return &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("unexpected %s %q", t.kind, t.val)}
}

func (p *parser) parseExpr() (Node, error) {
	cond, err := p.parseBinary(1)
	if err != nil {
		return nil, err
	}
	if !p.isOp("?") {
		return cond, nil
	}
	q := p.advance()
	then, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(":"); err != nil {
		return nil, err
	}
	els, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &Conditional{At: q.pos, Cond: cond, Then: then, Else: els}, nil
}

func (p *parser) parseBinary(minPrec int) (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp {
			return left, nil
		}
		prec, ok := binaryPrec[t.val]
		if !ok || prec < minPrec {
			return left, nil
		}
		p.advance()
		right, err := p.parseBinary(prec + 1)
		if err != nil {
			return nil, err
		}
		switch t.val {
		case "&&", "||", "??":
			left = &Logical{At: t.pos, Op: t.val, Left: left, Right: right}
		default:
			left = &Binary{At: t.pos, Op: t.val, Left: left, Right: right}
		}
	}
}

func (p *parser) parseUnary() (Node, error) {
	t := p.peek()
	if t.kind == tokOp && (t.val == "!" || t.val == "-" || t.val == "+") {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{At: t.pos, Op: t.val, Operand: operand}, nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (Node, error) {
	n, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		switch {
		case t.kind == tokOp && t.val == ".":
			p.advance()
			name := p.advance()
			if name.kind != tokIdent {
				return nil, &SyntaxError{Pos: name.pos, Msg: "expected property name after '.'"}
			}
			n = &Member{At: t.pos, Object: n, Name: name.val}
		case t.kind == tokOp && t.val == "[":
			p.advance()
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect("]"); err != nil {
				return nil, err
			}
			n = &Index{At: t.pos, Object: n, Index: idx}
		case t.kind == tokOp && t.val == "(":
			p.advance()
			args, err := p.parseList(")")
			if err != nil {
				return nil, err
			}
			n = &Call{At: t.pos, Callee: n, Args: args}
		default:
			return n, nil
		}
	}
}

// parseList parses comma separated expressions up to and including the
// closing token. A trailing comma is accepted.
func (p *parser) parseList(closing string) ([]Node, error) {
	var items []Node
	for !p.isOp(closing) {
		item, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if !p.isOp(",") {
			break
		}
		p.advance()
	}
	if _, err := p.expect(closing); err != nil {
		return nil, err
	}
	return items, nil
}

func (p *parser) parsePrimary() (Node, error) {
	t := p.advance()
	switch t.kind {
	case tokInt:
		i, err := strconv.ParseInt(t.val, 10, 64)
		if err != nil {
			f, ferr := strconv.ParseFloat(t.val, 64)
			if ferr != nil {
				return nil, &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("invalid number %q", t.val)}
			}
			return &Literal{At: t.pos, Value: FloatValue(f)}, nil
		}
		return &Literal{At: t.pos, Value: IntValue(i)}, nil
	case tokFloat:
		f, err := strconv.ParseFloat(t.val, 64)
		if err != nil {
			return nil, &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("invalid number %q", t.val)}
		}
		return &Literal{At: t.pos, Value: FloatValue(f)}, nil
	case tokString:
		return &Literal{At: t.pos, Value: StringValue(t.val)}, nil
	case tokIdent:
		switch t.val {
		case "true":
			return &Literal{At: t.pos, Value: BoolValue(true)}, nil
		case "false":
			return &Literal{At: t.pos, Value: BoolValue(false)}, nil
		case "null", "undefined":
			return &Literal{At: t.pos, Value: NoneValue{}}, nil
		}
		return &Ident{At: t.pos, Name: t.val}, nil
	case tokOp:
		switch t.val {
		case "(":
			n, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(")"); err != nil {
				return nil, err
			}
			return n, nil
		case "[":
			items, err := p.parseList("]")
			if err != nil {
				return nil, err
			}
			return &ListLit{At: t.pos, Items: items}, nil
		case "{":
			return p.parseMap(t)
		}
	}
	return nil, p.unexpected(t)
}

func (p *parser) parseMap(open token) (Node, error) {
	m := &MapLit{At: open.pos}
	for !p.isOp("}") {
		k := p.advance()
		switch k.kind {
		case tokIdent, tokString, tokInt:
		default:
			return nil, &SyntaxError{Pos: k.pos, Msg: "expected dictionary key"}
		}
		if _, err := p.expect(":"); err != nil {
			return nil, err
		}
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		m.Keys = append(m.Keys, k.val)
		m.Values = append(m.Values, v)
		if !p.isOp(",") {
			break
		}
		p.advance()
	}
	if _, err := p.expect("}"); err != nil {
		return nil, err
	}
	return m, nil
}

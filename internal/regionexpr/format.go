package regionexpr

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/roach88/cellsim/internal/geom"
)

var opSymbol = map[Kind]byte{
	KindUnion:      '+',
	KindIntersect:  '*',
	KindDifference: '-',
}

// String renders the expression in parenthesized infix form, for example
// "((cell + nucleus) - vesicle)" or "cell[top]".
func (e Expr) String() string {
	if e.IsEmpty() {
		return ""
	}
	var b strings.Builder
	e.writeAt(&b, e.root)
	return b.String()
}

func (e Expr) writeAt(b *strings.Builder, id NodeID) {
	n := e.nodes[id]
	if n.Kind.IsLeaf() {
		b.WriteString(n.Name)
		return
	}
	b.WriteByte('(')
	e.writeAt(b, n.Left)
	b.WriteByte(' ')
	b.WriteByte(opSymbol[n.Kind])
	b.WriteByte(' ')
	e.writeAt(b, n.Right)
	b.WriteByte(')')
}

// Parse reads an infix expression. Operands are object names (enclosed
// volume) or object[region] (surface region); operators + * - share one
// precedence and associate left.
func Parse(g *geom.Geometry, src string) (Expr, error) {
	p := &parser{g: g, src: src}
	e, err := p.expr()
	if err != nil {
		return Expr{}, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return Expr{}, p.errorf("unexpected %q", p.src[p.pos:])
	}
	return e, nil
}

type parser struct {
	g   *geom.Geometry
	src string
	pos int
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %q at offset %d: %s", ErrInvalid, p.src, p.pos, fmt.Sprintf(format, args...))
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) expr() (Expr, error) {
	left, err := p.operand()
	if err != nil {
		return Expr{}, err
	}
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return left, nil
		}
		var kind Kind
		switch p.src[p.pos] {
		case '+':
			kind = KindUnion
		case '*':
			kind = KindIntersect
		case '-':
			kind = KindDifference
		default:
			return left, nil
		}
		p.pos++
		right, err := p.operand()
		if err != nil {
			return Expr{}, err
		}
		left = combine(kind, left, right)
	}
}

func (p *parser) operand() (Expr, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return Expr{}, p.errorf("missing operand")
	}
	if p.src[p.pos] == '(' {
		p.pos++
		e, err := p.expr()
		if err != nil {
			return Expr{}, err
		}
		p.skipSpace()
		if p.pos >= len(p.src) || p.src[p.pos] != ')' {
			return Expr{}, p.errorf("missing )")
		}
		p.pos++
		return e, nil
	}

	objName := p.ident()
	if objName == "" {
		return Expr{}, p.errorf("expected object name")
	}
	obj, ok := p.g.ObjectByName(objName)
	if !ok {
		return Expr{}, p.errorf("unknown object %q", objName)
	}
	if p.pos < len(p.src) && p.src[p.pos] == '[' {
		p.pos++
		regName := p.ident()
		if p.pos >= len(p.src) || p.src[p.pos] != ']' {
			return Expr{}, p.errorf("missing ]")
		}
		p.pos++
		reg, ok := p.g.RegionByName(obj.ID, regName)
		if !ok {
			return Expr{}, p.errorf("unknown region %s[%s]", objName, regName)
		}
		return SurfaceRegion(p.g, reg.ID), nil
	}
	return ObjectVolume(p.g, obj.ID), nil
}

func (p *parser) ident() string {
	start := p.pos
	for p.pos < len(p.src) {
		r, size := utf8.DecodeRuneInString(p.src[p.pos:])
		if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.') {
			break
		}
		p.pos += size
	}
	return p.src[start:p.pos]
}

package expr

// Node is any node of a parsed expression.
type Node interface {
	Pos() int
	node()
}

// Literal is a constant: number, string, bool or null.
type Literal struct {
	At    int
	Value Value
}

// Ident references a variable or registered function.
type Ident struct {
	At   int
	Name string
}

// ListLit is a list literal: [a, b, c]
type ListLit struct {
	At    int
	Items []Node
}

// MapLit is a dictionary literal: {key: value}
type MapLit struct {
	At     int
	Keys   []string
	Values []Node
}

// Member is a dotted access: obj.name
type Member struct {
	At     int
	Object Node
	Name   string
}

// Index is a subscript: obj[index]
type Index struct {
	At     int
	Object Node
	Index  Node
}

// Call invokes a callable value: fn(args...)
type Call struct {
	At     int
	Callee Node
	Args   []Node
}

// Unary is a prefix operator: !x, -x, +x
type Unary struct {
	At      int
	Op      string
	Operand Node
}

// Binary is an arithmetic or comparison operator.
type Binary struct {
	At    int
	Op    string
	Left  Node
	Right Node
}

// Logical is a short-circuiting operator: &&, || or ??.
type Logical struct {
	At    int
	Op    string
	Left  Node
	Right Node
}

// Conditional is the ternary operator: cond ? then : else
type Conditional struct {
	At   int
	Cond Node
	Then Node
	Else Node
}

func (n *Literal) Pos() int     { return n.At }
func (n *Ident) Pos() int       { return n.At }
func (n *ListLit) Pos() int     { return n.At }
func (n *MapLit) Pos() int      { return n.At }
func (n *Member) Pos() int      { return n.At }
func (n *Index) Pos() int       { return n.At }
func (n *Call) Pos() int        { return n.At }
func (n *Unary) Pos() int       { return n.At }
func (n *Binary) Pos() int      { return n.At }
func (n *Logical) Pos() int     { return n.At }
func (n *Conditional) Pos() int { return n.At }

func (*Literal) node()     {}
func (*Ident) node()       {}
func (*ListLit) node()     {}
func (*MapLit) node()      {}
func (*Member) node()      {}
func (*Index) node()       {}
func (*Call) node()        {}
func (*Unary) node()       {}
func (*Binary) node()      {}
func (*Logical) node()     {}
func (*Conditional) node() {}

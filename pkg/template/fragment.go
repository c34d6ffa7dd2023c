package template

import "fmt"

// Kind is the semantic type of a Fragment.
type Kind int

const (
	// KindText is literal text, and the only kind left after execution.
	KindText Kind = iota
	// KindTag is a tag span the classifier has not typed yet.
	KindTag
	KindExpression
	KindFor
	KindEndFor
	KindIf
	KindEndIf
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindTag:
		return "tag"
	case KindExpression:
		return "expression"
	case KindFor:
		return "for"
	case KindEndFor:
		return "efor"
	case KindIf:
		return "if"
	case KindEndIf:
		return "fi"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// LoopMode selects what a for loop binds to its variable.
type LoopMode int

const (
	// IndicesOf binds positional indices (dictionary keys for dictionaries): for x in xs
	IndicesOf LoopMode = iota
	// ValuesOf binds the elements themselves: for x of xs
	ValuesOf
)

func (m LoopMode) String() string {
	if m == ValuesOf {
		return "of"
	}
	return "in"
}

// ForPayload is the parsed header of a for tag.
type ForPayload struct {
	Var      string
	Mode     LoopMode
	Iterable string
}

// IfPayload is the parsed header of an if tag.
type IfPayload struct {
	Cond string
}

// Fragment is a node of a compiled template.
type Fragment struct {
	Kind Kind
	// Raw is the untrimmed tag content, or the literal text.
	Raw string
	// Expr is the trimmed expression of an Expression fragment.
	Expr string
	For  *ForPayload
	If   *IfPayload
	// Children is only populated for For and If fragments.
	Children []*Fragment
	// Offset is the byte offset of the opening delimiter (or of the first
	// byte of a text span) in the template source.
	Offset int
	// ID numbers fragments in tree order; ParentID is the enclosing
	// block's ID, or -1 at the root. Nothing walks the tree through it.
	ID       int
	ParentID int
}

// IsControl reports whether f owns a children sequence.
func (f *Fragment) IsControl() bool {
	return f.Kind == KindFor || f.Kind == KindIf
}

// terminator returns the end tag kind and keyword closing a control kind.
func terminator(k Kind) (Kind, string) {
	switch k {
	case KindFor:
		return KindEndFor, "efor"
	case KindIf:
		return KindEndIf, "fi"
	}
	return k, ""
}

package template

// builder nests classified fragments between their block tags. Each
// control fragment recurses until it meets its own terminator, so nested
// blocks consume theirs first.
type builder struct {
	frags  []*Fragment
	i      int
	nextID int
}

func build(frags []*Fragment) ([]*Fragment, error) {
	b := &builder{frags: frags}
	return b.parseSeq(nil)
}

// parseSeq collects fragments until the terminator of open, or until the
// input ends when open is nil.
func (b *builder) parseSeq(open *Fragment) ([]*Fragment, error) {
	parentID := -1
	var want Kind
	if open != nil {
		parentID = open.ID
		want, _ = terminator(open.Kind)
	}
	var out []*Fragment
	for b.i < len(b.frags) {
		f := b.frags[b.i]
		b.i++
		switch f.Kind {
		case KindText:
			// Empty spans only keep the token stream alternating.
			if f.Raw == "" {
				continue
			}
			out = append(out, b.leaf(f, parentID))
		case KindExpression:
			out = append(out, b.leaf(f, parentID))
		case KindFor, KindIf:
			n := b.leaf(f, parentID)
			children, err := b.parseSeq(n)
			if err != nil {
				return nil, err
			}
			n.Children = children
			out = append(out, n)
		case KindEndFor, KindEndIf:
			if open == nil {
				return nil, &UnexpectedEndTagError{Offset: f.Offset, Keyword: f.Kind.String()}
			}
			if f.Kind != want {
				return nil, missingEnd(open)
			}
			return out, nil
		default:
			return nil, internalf("unclassified %s fragment at offset %d", f.Kind, f.Offset)
		}
	}
	if open != nil {
		return nil, missingEnd(open)
	}
	return out, nil
}

// leaf copies f into the tree with a fresh id.
func (b *builder) leaf(f *Fragment, parentID int) *Fragment {
	n := *f
	n.ID = b.nextID
	n.ParentID = parentID
	n.Children = nil
	b.nextID++
	return &n
}

func missingEnd(open *Fragment) error {
	_, kw := terminator(open.Kind)
	return &MissingEndTagError{Kind: open.Kind, Offset: open.Offset, Expected: kw}
}

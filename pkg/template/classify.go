package template

import (
	"regexp"
	"strings"
)

// Tag patterns, tried in this order. Anything else is an expression.
var (
	forTag  = regexp.MustCompile(`(?s)^\s*for\s+([A-Za-z_][A-Za-z0-9_]*)\s+(in|of)\s*(.+?)\s*$`)
	eforTag = regexp.MustCompile(`^\s*efor\s*$`)
	ifTag   = regexp.MustCompile(`(?s)^\s*if\s+(.+?)\s*$`)
	fiTag   = regexp.MustCompile(`^\s*fi\s*$`)
)

// classify returns frags with every Tag fragment replaced by its typed
// form. Text fragments pass through.
func classify(frags []*Fragment) []*Fragment {
	out := make([]*Fragment, len(frags))
	for i, f := range frags {
		if f.Kind != KindTag {
			out[i] = f
			continue
		}
		out[i] = classifyTag(f)
	}
	return out
}

func classifyTag(f *Fragment) *Fragment {
	c := &Fragment{Raw: f.Raw, Offset: f.Offset}
	switch {
	case forTag.MatchString(f.Raw):
		m := forTag.FindStringSubmatch(f.Raw)
		mode := IndicesOf
		if m[2] == "of" {
			mode = ValuesOf
		}
		c.Kind = KindFor
		c.For = &ForPayload{Var: m[1], Mode: mode, Iterable: m[3]}
	case eforTag.MatchString(f.Raw):
		c.Kind = KindEndFor
	case ifTag.MatchString(f.Raw):
		c.Kind = KindIf
		c.If = &IfPayload{Cond: ifTag.FindStringSubmatch(f.Raw)[1]}
	case fiTag.MatchString(f.Raw):
		c.Kind = KindEndIf
	default:
		c.Kind = KindExpression
		c.Expr = strings.TrimSpace(f.Raw)
	}
	return c
}

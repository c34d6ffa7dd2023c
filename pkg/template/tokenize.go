package template

import "strings"

// DefaultDelimiter opens and closes every tag.
const DefaultDelimiter = '$'

// tokenize splits src into alternating Text and Tag fragments. Each
// delimiter toggles between the two states. A text span, possibly empty,
// is emitted before every tag and after the last one, so text and tags
// strictly alternate and the sequence always starts and ends with text.
func tokenize(src string, delim byte) ([]*Fragment, error) {
	if src == "" {
		return nil, nil
	}
	var (
		out     []*Fragment
		start   int
		open    = -1
		inside  bool
		scanned int
	)
	for {
		j := strings.IndexByte(src[scanned:], delim)
		if j < 0 {
			break
		}
		at := scanned + j
		if !inside {
			out = append(out, &Fragment{Kind: KindText, Raw: src[start:at], Offset: start})
			open = at
		} else {
			out = append(out, &Fragment{Kind: KindTag, Raw: src[open+1 : at], Offset: open})
		}
		inside = !inside
		start = at + 1
		scanned = at + 1
	}
	if inside {
		return nil, &UnclosedTagError{Offset: open, Delim: delim}
	}
	out = append(out, &Fragment{Kind: KindText, Raw: src[start:], Offset: start})
	return out, nil
}

// span returns the exact source text a tokenized fragment was cut from.
func span(f *Fragment, delim byte) string {
	if f.Kind == KindText {
		return f.Raw
	}
	d := string(delim)
	return d + f.Raw + d
}

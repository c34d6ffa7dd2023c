// Package diag renders template errors against their source: file, line
// and column, the offending line, and a caret under the error position.
package diag

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Positioned matches the errors of package template that carry a byte
// offset into a template source.
type Positioned interface {
	error
	Pos() int
}

// Location is a resolved source position. Line and Col are 1-based; Col
// counts runes.
type Location struct {
	Line int
	Col  int
	Text string
	// Prefix is the part of Text before the position.
	Prefix string
}

// Locate resolves a byte offset in src. Offsets outside src are clamped.
func Locate(src string, offset int) Location {
	if offset < 0 {
		offset = 0
	}
	if offset > len(src) {
		offset = len(src)
	}
	start := strings.LastIndexByte(src[:offset], '\n') + 1
	end := strings.IndexByte(src[offset:], '\n')
	if end < 0 {
		end = len(src)
	} else {
		end += offset
	}
	prefix := src[start:offset]
	return Location{
		Line:   strings.Count(src[:offset], "\n") + 1,
		Col:    utf8.RuneCountInString(prefix) + 1,
		Text:   strings.TrimSuffix(src[start:end], "\r"),
		Prefix: prefix,
	}
}

// Caret returns a line that puts ^ under the position. Tabs in the
// prefix are kept so the caret lines up however tabs are displayed.
func (l Location) Caret() string {
	var sb strings.Builder
	for _, r := range l.Prefix {
		if r == '\t' {
			sb.WriteRune('\t')
		} else {
			sb.WriteRune(' ')
		}
	}
	sb.WriteByte('^')
	return sb.String()
}

// Format renders err for the template named path with source src. Errors
// without a position are returned as "path: message".
func Format(path, src string, err error) string {
	if path == "" {
		path = "<template>"
	}
	var p Positioned
	if !errors.As(err, &p) {
		return fmt.Sprintf("%s: %v", path, err)
	}
	loc := Locate(src, p.Pos())
	return fmt.Sprintf("%s:%d:%d: %v\n  %s\n  %s", path, loc.Line, loc.Col, err, loc.Text, loc.Caret())
}

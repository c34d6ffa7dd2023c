package template

import "strings"

// construct concatenates executed fragments. Anything but Text here means
// the builder or executor is broken.
func construct(frags []*Fragment) (string, error) {
	var sb strings.Builder
	for _, f := range frags {
		if f.Kind != KindText {
			return "", internalf("%s fragment at offset %d reached output construction", f.Kind, f.Offset)
		}
		sb.WriteString(f.Raw)
	}
	return sb.String(), nil
}

package prefstore

import (
	"fmt"
	"strings"
)

// Separator joins the store identifier and scope segments in a backend key.
const Separator = ':'

const sep = string(Separator)

// Path is an ordered scope path. The last segment is the field key; any
// preceding segments are scope prefixes such as an account identifier.
type Path []string

// String returns the joined, escaped form of the path. Two paths have equal
// strings iff their segments are equal.
func (p Path) String() string {
	parts := make([]string, len(p))
	for i, seg := range p {
		parts[i] = escapeSegment(seg)
	}
	return strings.Join(parts, sep)
}

// Field returns the final segment, or "" for an empty path.
func (p Path) Field() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// Scope returns the segments preceding the field key.
func (p Path) Scope() []string {
	if len(p) == 0 {
		return nil
	}
	return p[:len(p)-1]
}

// Validate rejects empty paths and empty segments.
func (p Path) Validate() error {
	if len(p) == 0 {
		return fmt.Errorf("%w: path has no field key", ErrEmptySegment)
	}
	for i, seg := range p {
		if seg == "" {
			return fmt.Errorf("%w at position %d", ErrEmptySegment, i)
		}
	}
	return nil
}

// ValidateStoreID checks that id can lead a backend key.
func ValidateStoreID(id string) error {
	if id == "" || strings.ContainsRune(id, Separator) {
		return fmt.Errorf("%w: %q", ErrInvalidStoreID, id)
	}
	return nil
}

// ComposeKey builds the backend key "<storeID>:<seg1>:...:<field>".
// Segments containing the separator or '%' are percent-escaped; all other
// segments are written verbatim.
func ComposeKey(storeID string, p Path) string {
	return storeID + sep + p.String()
}

// BelongsTo reports whether backendKey was composed for storeID.
func BelongsTo(backendKey, storeID string) bool {
	return strings.HasPrefix(backendKey, storeID+sep)
}

// ParseKey splits a backend key produced by ComposeKey.
func ParseKey(backendKey string) (string, Path, error) {
	parts := strings.Split(backendKey, sep)
	if len(parts) < 2 || parts[0] == "" {
		return "", nil, fmt.Errorf("%w: %q", ErrMalformedKey, backendKey)
	}
	p := make(Path, 0, len(parts)-1)
	for _, raw := range parts[1:] {
		seg, err := unescapeSegment(raw)
		if err != nil || seg == "" {
			return "", nil, fmt.Errorf("%w: %q", ErrMalformedKey, backendKey)
		}
		p = append(p, seg)
	}
	return parts[0], p, nil
}

var segmentEscaper = strings.NewReplacer("%", "%25", sep, "%3A")

func escapeSegment(seg string) string {
	if !strings.ContainsAny(seg, "%"+sep) {
		return seg
	}
	return segmentEscaper.Replace(seg)
}

func unescapeSegment(seg string) (string, error) {
	if !strings.Contains(seg, "%") {
		return seg, nil
	}
	var b strings.Builder
	b.Grow(len(seg))
	for i := 0; i < len(seg); i++ {
		if seg[i] != '%' {
			b.WriteByte(seg[i])
			continue
		}
		if i+3 > len(seg) {
			return "", ErrMalformedKey
		}
		switch seg[i+1 : i+3] {
		case "25":
			b.WriteByte('%')
		case "3A":
			b.WriteByte(Separator)
		default:
			return "", ErrMalformedKey
		}
		i += 2
	}
	return b.String(), nil
}

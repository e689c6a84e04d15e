// Package ctags drives universal-ctags: it checks for JSON output support,
// turns tag records into fixed-width display lines and caches them.
package ctags

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// TagInfo is one tag record of `ctags --output-format=json`.
type TagInfo struct {
	Type    string `json:"_type,omitempty"`
	Name    string `json:"name"`
	Path    string `json:"path"`
	Pattern string `json:"pattern"`
	Line    int    `json:"line"`
	Kind    string `json:"kind"`
}

// ParseTag decodes a JSON tag record. Pseudo-tags and records without a
// name or line number are rejected.
func ParseTag(line []byte) (TagInfo, error) {
	var tag TagInfo
	if err := json.Unmarshal(line, &tag); err != nil {
		return TagInfo{}, fmt.Errorf("decoding tag: %w", err)
	}
	if tag.Type != "" && tag.Type != "tag" {
		return TagInfo{}, fmt.Errorf("not a tag record: %q", tag.Type)
	}
	if tag.Name == "" || tag.Line < 1 {
		return TagInfo{}, fmt.Errorf("incomplete tag record %q", tag.Name)
	}
	return tag, nil
}

// DisplayLine renders the tag as
//
//	name:line                      [kind@path]                    pattern
//
// with the first two columns padded to 30 characters. The search pattern
// loses its "/^" and "$/" anchors.
func (t TagInfo) DisplayLine() string {
	nameLine := t.Name + ":" + strconv.Itoa(t.Line)
	kind := "[" + t.Kind + "@" + t.Path + "]"
	return fmt.Sprintf("%-30s %-30s %s", nameLine, kind, t.trimmedPattern())
}

func (t TagInfo) trimmedPattern() string {
	p := t.Pattern
	if len(p) >= 4 {
		p = p[2 : len(p)-2]
	}
	return strings.TrimSpace(p)
}

// Package definitions holds the per-language regex rules used to find
// symbol definitions with ripgrep, and the comment tokens used to filter
// plain occurrences.
package definitions

import (
	_ "embed"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/dlclark/regexp2"
	"github.com/pelletier/go-toml/v2"

	symerrors "symfind/internal/errors"
)

// Placeholder marks where the word goes in a rule template.
const Placeholder = "JJJ"

// DefinitionKind classifies a definition, e.g. function or struct.
type DefinitionKind string

const (
	KindFunction  DefinitionKind = "function"
	KindMethod    DefinitionKind = "method"
	KindClass     DefinitionKind = "class"
	KindStruct    DefinitionKind = "struct"
	KindInterface DefinitionKind = "interface"
	KindTrait     DefinitionKind = "trait"
	KindProtocol  DefinitionKind = "protocol"
	KindEnum      DefinitionKind = "enum"
	KindUnion     DefinitionKind = "union"
	KindType      DefinitionKind = "type"
	KindData      DefinitionKind = "data"
	KindImpl      DefinitionKind = "impl"
	KindVariable  DefinitionKind = "variable"
	KindConstant  DefinitionKind = "constant"
	KindMacro     DefinitionKind = "macro"
	KindModule    DefinitionKind = "module"
)

//go:embed rules.toml
var defaultRulesTOML []byte

// RuleTable maps a ripgrep file type to its definition templates.
// It is read-only after construction and safe for concurrent use.
type RuleTable struct {
	rules map[string]map[DefinitionKind]string
}

// NewRuleTable validates rules and copies them into a table.
// Every template must contain exactly one Placeholder and compile once the
// placeholder is substituted.
func NewRuleTable(rules map[string]map[DefinitionKind]string) (*RuleTable, error) {
	t := &RuleTable{rules: make(map[string]map[DefinitionKind]string, len(rules))}
	for lang, kinds := range rules {
		if lang == "" {
			return nil, fmt.Errorf("rule table: empty language name")
		}
		copied := make(map[DefinitionKind]string, len(kinds))
		for kind, tmpl := range kinds {
			if err := validateTemplate(tmpl); err != nil {
				return nil, fmt.Errorf("rule table: %s/%s: %w", lang, kind, err)
			}
			copied[kind] = tmpl
		}
		t.rules[lang] = copied
	}
	return t, nil
}

func validateTemplate(tmpl string) error {
	if strings.TrimSpace(tmpl) == "" {
		return fmt.Errorf("empty template")
	}
	if n := strings.Count(tmpl, Placeholder); n != 1 {
		return fmt.Errorf("template %q has %d placeholders, want 1", tmpl, n)
	}
	if strings.ContainsRune(tmpl, '\'') {
		return fmt.Errorf("template %q contains a single quote", tmpl)
	}
	if _, err := regexp2.Compile(strings.Replace(tmpl, Placeholder, "sample", 1), regexp2.None); err != nil {
		return fmt.Errorf("template %q: %w", tmpl, err)
	}
	return nil
}

// ParseRules decodes TOML of the form
//
//	[rust]
//	function = '\bfn\s+JJJ\b'
func ParseRules(data []byte) (map[string]map[DefinitionKind]string, error) {
	var raw map[string]map[string]string
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing rules: %w", err)
	}
	rules := make(map[string]map[DefinitionKind]string, len(raw))
	for lang, kinds := range raw {
		rules[lang] = make(map[DefinitionKind]string, len(kinds))
		for kind, tmpl := range kinds {
			rules[lang][DefinitionKind(kind)] = tmpl
		}
	}
	return rules, nil
}

// LoadRuleTable reads a TOML rules file.
func LoadRuleTable(path string) (*RuleTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules: %w", err)
	}
	rules, err := ParseRules(data)
	if err != nil {
		return nil, err
	}
	return NewRuleTable(rules)
}

var (
	defaultOnce  sync.Once
	defaultTable *RuleTable
)

// DefaultRules returns the built-in table. It panics if the embedded rules
// are invalid, which the package tests rule out.
func DefaultRules() *RuleTable {
	defaultOnce.Do(func() {
		rules, err := ParseRules(defaultRulesTOML)
		if err == nil {
			defaultTable, err = NewRuleTable(rules)
		}
		if err != nil {
			panic(err)
		}
	})
	return defaultTable
}

// Merge returns a new table with other's templates layered over t's.
// Kinds are merged per language, so an override file only needs the
// templates it changes.
func (t *RuleTable) Merge(other *RuleTable) *RuleTable {
	merged := &RuleTable{rules: make(map[string]map[DefinitionKind]string, len(t.rules))}
	for lang, kinds := range t.rules {
		merged.rules[lang] = maps.Clone(kinds)
	}
	if other == nil {
		return merged
	}
	for lang, kinds := range other.rules {
		if merged.rules[lang] == nil {
			merged.rules[lang] = make(map[DefinitionKind]string, len(kinds))
		}
		maps.Copy(merged.rules[lang], kinds)
	}
	return merged
}

// RulesFor returns a copy of the templates registered for lang.
func (t *RuleTable) RulesFor(lang string) (map[DefinitionKind]string, error) {
	kinds, ok := t.rules[lang]
	if !ok {
		return nil, fmt.Errorf("%w: %s", symerrors.ErrUnsupportedLanguage, lang)
	}
	return maps.Clone(kinds), nil
}

// Kinds returns the definition kinds searched for lang, sorted by name.
func (t *RuleTable) Kinds(lang string) ([]DefinitionKind, error) {
	kinds, ok := t.rules[lang]
	if !ok {
		return nil, fmt.Errorf("%w: %s", symerrors.ErrUnsupportedLanguage, lang)
	}
	return slices.Sorted(maps.Keys(kinds)), nil
}

// Supports reports whether lang has any rules.
func (t *RuleTable) Supports(lang string) bool {
	_, ok := t.rules[lang]
	return ok
}

// Languages lists the registered languages, sorted.
func (t *RuleTable) Languages() []string {
	return slices.Sorted(maps.Keys(t.rules))
}

// Template returns the template for one kind of lang.
func (t *RuleTable) Template(lang string, kind DefinitionKind) (string, error) {
	kinds, ok := t.rules[lang]
	if !ok {
		return "", fmt.Errorf("%w: %s", symerrors.ErrUnsupportedLanguage, lang)
	}
	tmpl, ok := kinds[kind]
	if !ok {
		return "", fmt.Errorf("%w: %s has no %s rule", symerrors.ErrUnknownKind, lang, kind)
	}
	return tmpl, nil
}

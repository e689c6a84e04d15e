package definitions

import (
	"strings"

	"github.com/dlclark/regexp2"

	"symfind/internal/search/ripgrep"
)

// BuildFullRegexp substitutes the escaped word into the kind's template.
// The result is handed to rg --pcre2 as is; syntax errors surface from rg.
func BuildFullRegexp(table *RuleTable, lang string, kind DefinitionKind, word ripgrep.Word) (string, error) {
	tmpl, err := table.Template(lang, kind)
	if err != nil {
		return "", err
	}
	return strings.Replace(tmpl, Placeholder, regexp2.Escape(word.Raw), 1), nil
}

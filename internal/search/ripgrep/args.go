package ripgrep

import (
	"strings"
	"unicode"
)

// DefinitionArgs searches lang files for a PCRE2 definition pattern.
func DefinitionArgs(lang, regexp string) []string {
	return []string{"--trim", "--json", "--pcre2", "--type", lang, "-e", regexp}
}

// OccurrenceArgs searches lang files for whole-word occurrences of w.
func OccurrenceArgs(w Word, lang string) []string {
	return []string{"--json", "--word-regexp", "-e", w.Raw, "--type", lang}
}

// ExtOccurrenceArgs is OccurrenceArgs for files selected by extension
// rather than by ripgrep file type.
func ExtOccurrenceArgs(w Word, ext string) []string {
	ext = strings.TrimPrefix(ext, ".")
	return []string{"--json", "--word-regexp", "-e", w.Raw, "-g", "*." + ext}
}

// RegexpArgs treats runs of whitespace in w as `.*`, so a query like
// "new client" finds "NewHTTPClient(" style lines.
func RegexpArgs(w Word, lang string) []string {
	fields := strings.FieldsFunc(w.Raw, unicode.IsSpace)
	return []string{"--json", "-e", strings.Join(fields, ".*"), "--type", lang}
}

// CommandLine renders bin and args as a single-quoted shell command, for logs.
func CommandLine(bin string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, bin)
	for _, a := range args {
		parts = append(parts, shellQuote(a))
	}
	return strings.Join(parts, " ")
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, r := range s {
		if !(unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("-_./=:,+@", r)) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

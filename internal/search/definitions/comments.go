package definitions

import (
	"path/filepath"
	"strings"

	"symfind/internal/search/ripgrep"
)

// DefaultCommentTokens is used for languages without an entry.
var DefaultCommentTokens = []string{"//"}

var commentTokens = map[string][]string{
	"c":       {"//", "/*"},
	"cpp":     {"//", "/*"},
	"go":      {"//", "/*"},
	"java":    {"//", "/*"},
	"js":      {"//", "/*"},
	"ts":      {"//", "/*"},
	"rust":    {"//", "/*"},
	"php":     {"//", "#", "/*"},
	"kotlin":  {"//", "/*"},
	"swift":   {"//", "/*"},
	"scala":   {"//", "/*"},
	"py":      {"#"},
	"ruby":    {"#"},
	"r":       {"#"},
	"elixir":  {"#"},
	"sh":      {"#"},
	"lua":     {"--"},
	"haskell": {"--", "{-"},
	"erlang":  {"%"},
	"elisp":   {";"},
	"vim":     {`"`},
	"ocaml":   {"(*"},
}

// languageByExt maps a file extension (without the dot) to its ripgrep type.
var languageByExt = map[string]string{
	"c":     "c",
	"h":     "c",
	"cc":    "cpp",
	"cpp":   "cpp",
	"cxx":   "cpp",
	"hh":    "cpp",
	"hpp":   "cpp",
	"go":    "go",
	"java":  "java",
	"js":    "js",
	"jsx":   "js",
	"mjs":   "js",
	"cjs":   "js",
	"ts":    "ts",
	"tsx":   "ts",
	"py":    "py",
	"pyi":   "py",
	"rb":    "ruby",
	"rs":    "rust",
	"php":   "php",
	"kt":    "kotlin",
	"kts":   "kotlin",
	"swift": "swift",
	"lua":   "lua",
	"scala": "scala",
	"ex":    "elixir",
	"exs":   "elixir",
	"erl":   "erlang",
	"hrl":   "erlang",
	"hs":    "haskell",
	"ml":    "ocaml",
	"mli":   "ocaml",
	"r":     "r",
	"el":    "elisp",
	"vim":   "vim",
	"sh":    "sh",
	"bash":  "sh",
	"zsh":   "sh",
}

// CommentTokens returns the line-comment prefixes for a ripgrep file type.
func CommentTokens(lang string) []string {
	if tokens, ok := commentTokens[lang]; ok {
		return tokens
	}
	return DefaultCommentTokens
}

// CommentTokensByExt returns the line-comment prefixes for a file extension.
func CommentTokensByExt(ext string) []string {
	return CommentTokens(LanguageByExt(ext))
}

// LanguageByExt returns the ripgrep file type for an extension such as
// "rs" or ".rs", or "" when unknown.
func LanguageByExt(ext string) string {
	return languageByExt[strings.ToLower(strings.TrimPrefix(ext, "."))]
}

// LanguageFromPath returns the ripgrep file type of a file path.
func LanguageFromPath(path string) string {
	return LanguageByExt(filepath.Ext(path))
}

// IsComment reports whether the trimmed line of m starts with one of tokens.
// This is a single-line heuristic: lines inside a block comment that do not
// themselves start with a token are not recognised.
func IsComment(m ripgrep.Match, tokens []string) bool {
	line := strings.TrimSpace(m.Text)
	for _, tok := range tokens {
		if strings.HasPrefix(line, tok) {
			return true
		}
	}
	return false
}

// CommentFilter returns a ripgrep.Filter that drops comment lines.
func CommentFilter(tokens []string) ripgrep.Filter {
	return func(m ripgrep.Match) bool {
		return !IsComment(m, tokens)
	}
}

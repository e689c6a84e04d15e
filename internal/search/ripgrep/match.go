package ripgrep

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// Match is one hit decoded from a ripgrep `match` record.
type Match struct {
	Path       string     `json:"path"`
	LineNumber int        `json:"line_number"`
	Column     int        `json:"column"` // 1-based byte column of the first submatch
	Text       string     `json:"text"`
	SubMatches []SubMatch `json:"submatches"`
}

// SubMatch is a matched span within Match.Text.
type SubMatch struct {
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Message is the envelope of every line of rg --json output.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type textOrBytes struct {
	Text  *string `json:"text"`
	Bytes string  `json:"bytes"`
}

type matchData struct {
	Path       textOrBytes `json:"path"`
	Lines      textOrBytes `json:"lines"`
	LineNumber int         `json:"line_number"`
	Submatches []struct {
		Match textOrBytes `json:"match"`
		Start int         `json:"start"`
		End   int         `json:"end"`
	} `json:"submatches"`
}

var (
	errNotMatch    = errors.New("not a match record")
	errMissingPath = errors.New("match record has no utf-8 path")
	errLineNumber  = errors.New("match record has no line number")
)

// ParseMatch decodes a single line of rg --json output.
// Begin, end, context and summary records return an error and are meant to be skipped.
func ParseMatch(line []byte) (Match, error) {
	var msg Message
	if err := json.Unmarshal(line, &msg); err != nil {
		return Match{}, err
	}
	if msg.Type != "match" {
		return Match{}, errNotMatch
	}

	var data matchData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return Match{}, err
	}
	if data.Path.Text == nil {
		return Match{}, errMissingPath
	}
	if data.LineNumber < 1 {
		return Match{}, errLineNumber
	}

	m := Match{
		Path:       *data.Path.Text,
		LineNumber: data.LineNumber,
	}
	if data.Lines.Text != nil {
		m.Text = strings.TrimRight(*data.Lines.Text, "\r\n")
	}
	for _, sm := range data.Submatches {
		sub := SubMatch{Start: sm.Start, End: sm.End}
		if sm.Match.Text != nil {
			sub.Text = *sm.Match.Text
		}
		m.SubMatches = append(m.SubMatches, sub)
	}
	if len(m.SubMatches) > 0 {
		m.Column = m.SubMatches[0].Start + 1
	}
	return m, nil
}

// Location renders the match as path:line:column.
func (m Match) Location() string {
	var b strings.Builder
	b.WriteString(m.Path)
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(m.LineNumber))
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(m.Column))
	return b.String()
}

// GrepLine renders the match the way `rg --vimgrep` would.
func (m Match) GrepLine() string {
	return m.Location() + ":" + m.Text
}

// Key identifies the match by location, ignoring text.
func (m Match) Key() string {
	return m.Path + ":" + strconv.Itoa(m.LineNumber)
}

// Package diff computes word-level diffs between the raw and cleaned text of
// a segment. The token stream is a partition: filtering to equal+inserted
// reconstructs the revised string exactly, and equal+deleted the original
// exactly. Equal tokens display the revised side's spelling; the original
// spelling is kept alongside for reconstruction.
package diff

import (
	"strings"
	"unicode"
)

// Op classifies a diff token.
type Op int

const (
	// Equal text appears in both strings.
	Equal Op = iota
	// Deleted text appears only in the original.
	Deleted
	// Inserted text appears only in the revised string.
	Inserted
)

func (op Op) String() string {
	switch op {
	case Equal:
		return "equal"
	case Deleted:
		return "deleted"
	case Inserted:
		return "inserted"
	}
	return "unknown"
}

// Token is one run of classified text. Adjacent tokens of the same type are
// coalesced. Text carries the revised side's spelling on equal runs; the
// original side's spelling is kept unexported so Original stays exact when
// words matched case-insensitively.
type Token struct {
	Op   Op
	Text string

	originalText string
}

// Compute diffs original against revised. Deterministic and side-effect
// free; safe to call on every keystroke, though callers should memoize by
// input pair (see Memo).
func Compute(original, revised string) []Token {
	a := tokenize(original)
	b := tokenize(revised)

	lcs := commonSubsequence(a, b)

	var out []Token
	ai, bi := 0, 0
	for _, match := range lcs {
		for ai < match.a {
			out = appendToken(out, Deleted, a[ai], "")
			ai++
		}
		for bi < match.b {
			out = appendToken(out, Inserted, b[bi], "")
			bi++
		}
		// Equal runs display the revised side's text, so recapitalized words
		// matched case-insensitively show the cleaned form. The original
		// spelling rides along for exact reconstruction.
		out = appendToken(out, Equal, b[bi], a[ai])
		ai++
		bi++
	}
	for ai < len(a) {
		out = appendToken(out, Deleted, a[ai], "")
		ai++
	}
	for bi < len(b) {
		out = appendToken(out, Inserted, b[bi], "")
		bi++
	}
	return out
}

// Original reconstructs the original string from a token stream.
func Original(tokens []Token) string {
	var sb strings.Builder
	for _, token := range tokens {
		switch token.Op {
		case Equal:
			if token.originalText != "" {
				sb.WriteString(token.originalText)
			} else {
				sb.WriteString(token.Text)
			}
		case Deleted:
			sb.WriteString(token.Text)
		}
	}
	return sb.String()
}

// Revised reconstructs the revised string from a token stream.
func Revised(tokens []Token) string {
	var sb strings.Builder
	for _, token := range tokens {
		if token.Op == Equal || token.Op == Inserted {
			sb.WriteString(token.Text)
		}
	}
	return sb.String()
}

func appendToken(out []Token, op Op, text, original string) []Token {
	if n := len(out); n > 0 && out[n-1].Op == op {
		out[n-1].Text += text
		out[n-1].originalText += original
		return out
	}
	return append(out, Token{Op: op, Text: text, originalText: original})
}

// tokenize splits on word and punctuation boundaries. Whitespace is attached
// to the preceding token so concatenation loses nothing; a leading-whitespace
// run becomes its own token.
func tokenize(s string) []string {
	if s == "" {
		return nil
	}
	var tokens []string
	var current strings.Builder
	trailingSpace := false

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
		trailingSpace = false
	}

	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			current.WriteRune(r)
			trailingSpace = true
		case unicode.IsLetter(r) || unicode.IsNumber(r) || r == '\'':
			if trailingSpace {
				flush()
			}
			current.WriteRune(r)
		default:
			// Punctuation is its own token so "Hello," and "Hello" share a word.
			if trailingSpace || current.Len() > 0 && !lastIsPunct(&current) {
				flush()
			}
			current.WriteRune(r)
		}
	}
	flush()
	return tokens
}

func lastIsPunct(sb *strings.Builder) bool {
	s := sb.String()
	if s == "" {
		return false
	}
	runes := []rune(s)
	last := runes[len(runes)-1]
	return !unicode.IsLetter(last) && !unicode.IsNumber(last) && last != '\''
}

type match struct {
	a, b int
}

// commonSubsequence returns index pairs of a longest common subsequence,
// comparing tokens case-insensitively so recapitalized words still align.
// Whitespace is significant: a matched pair must carry identical spacing or
// reconstruction would drift.
func commonSubsequence(a, b []string) []match {
	n, m := len(a), len(b)
	if n == 0 || m == 0 {
		return nil
	}

	ca := canonical(a)
	cb := canonical(b)

	// Standard dynamic program over token sequences. Segment texts are short
	// (tens of words), so the quadratic table is fine.
	table := make([][]int, n+1)
	for i := range table {
		table[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if ca[i] == cb[j] {
				table[i][j] = table[i+1][j+1] + 1
			} else if table[i+1][j] >= table[i][j+1] {
				table[i][j] = table[i+1][j]
			} else {
				table[i][j] = table[i][j+1]
			}
		}
	}

	matches := make([]match, 0, table[0][0])
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case ca[i] == cb[j]:
			matches = append(matches, match{a: i, b: j})
			i++
			j++
		case table[i+1][j] >= table[i][j+1]:
			i++
		default:
			j++
		}
	}
	return matches
}

func canonical(tokens []string) []string {
	out := make([]string, len(tokens))
	for i, token := range tokens {
		out[i] = strings.ToLower(token)
	}
	return out
}

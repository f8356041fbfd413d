package index

import (
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/dreamware/torusdb/internal/terrors"
	"github.com/dreamware/torusdb/internal/types"
)

const (
	maxSanitizedLen = 1000
	maxTokens       = 100
)

var (
	htmlTagRe      = regexp.MustCompile(`<[^>]*>`)
	sqlLineComment = regexp.MustCompile(`--[^\n]*`)
	sqlBlockComment = regexp.MustCompile(`/\*.*?\*/`)
	columnFilterRe = regexp.MustCompile(`\b\w+:\w+\b`)

	// proximityRe matches NEAR/n and ~n distance operators, neither of
	// which is part of the preserved AND/OR/NOT/phrase/prefix/grouping
	// grammar.
	proximityRe = regexp.MustCompile(`(?i)\bnear/\d+\b|~\d+`)

	// leadingNegationRe matches a bare "-", "!", or "NOT" at the very
	// start of the query, i.e. negation with nothing preceding it to
	// negate against.
	leadingNegationRe = regexp.MustCompile(`(?i)^\s*(-|!|not\b)`)

	// zeroWidthRe matches zero-width and bidirectional-control code
	// points (ZWSP/ZWNJ/ZWJ, LRM/RLM, embedding/override controls, word
	// joiner, BOM) that carry no searchable meaning and can be used to
	// smuggle content past the other checks.
	zeroWidthRe = regexp.MustCompile(`[\x{200B}-\x{200F}\x{202A}-\x{202E}\x{2060}\x{FEFF}]`)

	// diacriticsTransform decomposes to NFD, drops combining marks, and
	// recomposes, folding accented letters to their ASCII base form
	// (e.g. "café" -> "cafe").
	diacriticsTransform = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// Sanitize enforces invariant 7 on an FTS query string: no
// column-filter syntax (w:w), no proximity operators, no leading
// negation, no unbalanced quotes/parens, no SQL comments, no HTML tags,
// length <= 1000, tokens <= 100. Zero-width/directional Unicode is
// stripped and diacritics are normalized to ASCII; everything else it
// can't safely rewrite is rejected outright.
func Sanitize(raw string) (string, error) {
	s := htmlTagRe.ReplaceAllString(raw, "")
	s = sqlBlockComment.ReplaceAllString(s, "")
	s = sqlLineComment.ReplaceAllString(s, "")
	s = zeroWidthRe.ReplaceAllString(s, "")
	if folded, _, err := transform.String(diacriticsTransform, s); err == nil {
		s = folded
	}

	if columnFilterRe.MatchString(s) {
		return "", terrors.NewValidation("fts.query", "column-filter syntax is not permitted")
	}
	if proximityRe.MatchString(s) {
		return "", terrors.NewValidation("fts.query", "proximity operators are not permitted")
	}
	if leadingNegationRe.MatchString(s) {
		return "", terrors.NewValidation("fts.query", "leading negation is not permitted")
	}
	if !balanced(s, '"', '"') {
		return "", terrors.NewValidation("fts.query", "unbalanced quotes")
	}
	if !balancedParens(s) {
		return "", terrors.NewValidation("fts.query", "unbalanced parentheses")
	}
	if len(s) > maxSanitizedLen {
		return "", terrors.NewValidation("fts.query", "exceeds max length")
	}
	if len(Tokenize(s)) > maxTokens {
		return "", terrors.NewValidation("fts.query", "exceeds max token count")
	}
	return s, nil
}

func balanced(s string, open, close rune) bool {
	if open == close {
		return strings.Count(s, string(open))%2 == 0
	}
	depth := 0
	for _, r := range s {
		switch r {
		case open:
			depth++
		case close:
			depth--
		}
		if depth < 0 {
			return false
		}
	}
	return depth == 0
}

func balancedParens(s string) bool {
	return balanced(s, '(', ')')
}

// Tokenize lower-cases and splits on non-letter/non-digit runes,
// dropping empty tokens.
func Tokenize(s string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

// ftsIndex is a token -> document posting list, where a document is
// identified by (subject, predicate): the same string field can carry
// different text per predicate and FTS results must distinguish them.
type ftsIndex struct {
	mu    sync.RWMutex
	docs  *idMap
	posts map[string]*roaring.Bitmap
}

func newFTSIndex() *ftsIndex {
	return &ftsIndex{docs: newIDMap(), posts: make(map[string]*roaring.Bitmap)}
}

func docKey(subject types.EntityId, predicate types.Predicate) string {
	return subject.String() + "\x00" + predicate.String()
}

func (f *ftsIndex) index(subject types.EntityId, predicate types.Predicate, text string) {
	docID := f.docs.idFor(docKey(subject, predicate))
	tokens := Tokenize(text)

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tok := range tokens {
		bm, ok := f.posts[tok]
		if !ok {
			bm = roaring.New()
			f.posts[tok] = bm
		}
		bm.Add(docID)
	}
}

func (f *ftsIndex) remove(subject types.EntityId, predicate types.Predicate, text string) {
	docID, ok := f.docs.lookup(docKey(subject, predicate))
	if !ok {
		return
	}
	tokens := Tokenize(text)

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tok := range tokens {
		if bm, ok := f.posts[tok]; ok {
			bm.Remove(docID)
		}
	}
}

// Search returns the (subject, predicate) pairs whose indexed text
// contains every token in query (a simple AND of postings).
func (f *ftsIndex) search(query string) []string {
	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return nil
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	var result *roaring.Bitmap
	for _, tok := range tokens {
		bm, ok := f.posts[tok]
		if !ok {
			return nil
		}
		if result == nil {
			result = bm.Clone()
		} else {
			result.And(bm)
		}
	}
	if result == nil {
		return nil
	}

	out := make([]string, 0, result.GetCardinality())
	for _, id := range result.ToArray() {
		if key, ok := f.docs.subjectFor(id); ok {
			out = append(out, key)
		}
	}
	return out
}

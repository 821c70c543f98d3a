package classifier

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Field selects which input a rule inspects.
type Field int

const (
	FieldBody Field = iota
	FieldDisplayName
)

func (f Field) String() string {
	if f == FieldDisplayName {
		return "display_name"
	}
	return "body"
}

// Matcher returns how many times a rule fires on its input.
type Matcher func(s string) int

// Rule is one scoring heuristic. A rule contributes Hits*Weight to the score
// and its Reason at most once.
type Rule struct {
	Name   string
	Field  Field
	Match  Matcher
	Weight int
	Reason string
}

// Reason buckets.
const (
	ReasonLinks        = "Contains suspicious links"
	ReasonPromotional  = "Contains promotional language"
	ReasonKeywords     = "Contains spam keywords"
	ReasonRepetitive   = "Contains repetitive patterns"
	ReasonContact      = "Contains contact information"
	ReasonTooShort     = "Message too short"
	ReasonTooLong      = "Message too long"
	ReasonCaps         = "Excessive capitalization"
	ReasonAuthorName   = "Suspicious author name"
	ReasonAuthorSymbol = "Author name contains suspicious characters"
)

var (
	// Leftmost-first: a full URL is consumed by the scheme branch before the
	// host branches can match inside it.
	linkPattern     = regexp.MustCompile(`(?i)https?://\S+|www\.\S+|\b[a-z0-9-]+(?:\.[a-z0-9-]+)*\.(?:com|net|org|info|biz|io|co|ru|xyz|top)\b`)
	promoPattern    = regexp.MustCompile(`(?i)\b(?:buy now|click here|limited time|special offer|discount|promo|deal)\b`)
	moneyPattern    = regexp.MustCompile(`(?i)(?:\bmake money\b|\bwork from home\b|\bearn \$|\bget rich\b|\bpassive income\b)`)
	hypePattern     = regexp.MustCompile(`(?i)\b(?:free|guaranteed|instant|amazing|incredible|unbelievable)\b`)
	phonePattern    = regexp.MustCompile(`\b\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`)
	emailPattern    = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	wordPattern     = regexp.MustCompile(`\w+`)
	digitRunPattern = regexp.MustCompile(`\d{3,}`)
)

const (
	minBodyLength      = 10
	longBodyLength     = 2000
	capsMinLength      = 20
	capsRatioLimit     = 0.5
	nameSymbolRatio    = 0.3
	repeatedCharLength = 5
)

// DefaultRules returns the built-in rule table in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "link", Field: FieldBody, Match: countLinks, Weight: 10, Reason: ReasonLinks},
		{Name: "promo_phrase", Field: FieldBody, Match: Pattern(promoPattern), Weight: 10, Reason: ReasonPromotional},
		{Name: "money_phrase", Field: FieldBody, Match: Pattern(moneyPattern), Weight: 10, Reason: ReasonPromotional},
		{Name: "hype_word", Field: FieldBody, Match: Pattern(hypePattern), Weight: 10, Reason: ReasonKeywords},
		{Name: "repeated_char", Field: FieldBody, Match: repeatedCharRuns, Weight: 10, Reason: ReasonRepetitive},
		{Name: "repeated_word", Field: FieldBody, Match: repeatedWords, Weight: 10, Reason: ReasonRepetitive},
		{Name: "phone_number", Field: FieldBody, Match: Pattern(phonePattern), Weight: 10, Reason: ReasonContact},
		{Name: "email_address", Field: FieldBody, Match: Pattern(emailPattern), Weight: 10, Reason: ReasonContact},
		{Name: "too_short", Field: FieldBody, Match: Once(tooShort), Weight: 20, Reason: ReasonTooShort},
		{Name: "too_long", Field: FieldBody, Match: Once(tooLong), Weight: 30, Reason: ReasonTooLong},
		{Name: "excessive_caps", Field: FieldBody, Match: Once(excessiveCaps), Weight: 25, Reason: ReasonCaps},
		{Name: "name_digits", Field: FieldDisplayName, Match: Once(digitRunPattern.MatchString), Weight: 15, Reason: ReasonAuthorName},
		{Name: "name_symbols", Field: FieldDisplayName, Match: Once(symbolHeavyName), Weight: 10, Reason: ReasonAuthorSymbol},
	}
}

// Pattern counts non-overlapping matches of re.
func Pattern(re *regexp.Regexp) Matcher {
	return func(s string) int {
		return len(re.FindAllStringIndex(s, -1))
	}
}

// Once fires a single time when pred holds.
func Once(pred func(string) bool) Matcher {
	return func(s string) int {
		if pred(s) {
			return 1
		}
		return 0
	}
}

// countLinks counts URL-like substrings. The host part of an email address
// is not a link.
func countLinks(s string) int {
	count := 0
	for _, loc := range linkPattern.FindAllStringIndex(s, -1) {
		if loc[0] > 0 && s[loc[0]-1] == '@' {
			continue
		}
		count++
	}
	return count
}

func tooShort(body string) bool {
	return utf8.RuneCountInString(body) < minBodyLength
}

func tooLong(body string) bool {
	return utf8.RuneCountInString(body) > longBodyLength
}

func excessiveCaps(body string) bool {
	n := utf8.RuneCountInString(body)
	if n <= capsMinLength {
		return false
	}
	upper := 0
	for _, r := range body {
		if unicode.IsUpper(r) {
			upper++
		}
	}
	return float64(upper)/float64(n) > capsRatioLimit
}

// symbolHeavyName reports whether more than 30% of the name is not alphabetic.
// Spaces count against the name.
func symbolHeavyName(name string) bool {
	n := utf8.RuneCountInString(name)
	if n == 0 {
		return false
	}
	other := 0
	for _, r := range name {
		if !unicode.IsLetter(r) {
			other++
		}
	}
	return float64(other)/float64(n) > nameSymbolRatio
}

// repeatedCharRuns counts maximal runs of one character repeated 5 or more times.
// Line breaks never form a run.
func repeatedCharRuns(s string) int {
	count := 0
	var prev rune = -1
	run := 0
	for _, r := range s {
		if r == prev && r != '\n' {
			run++
		} else {
			if run >= repeatedCharLength {
				count++
			}
			prev, run = r, 1
		}
	}
	if run >= repeatedCharLength {
		count++
	}
	return count
}

// repeatedWords counts words immediately followed by the same word, ignoring case.
// A matched pair is consumed, so "the the the" counts once.
func repeatedWords(s string) int {
	idx := wordPattern.FindAllStringIndex(s, -1)
	count := 0
	for i := 0; i+1 < len(idx); i++ {
		cur, next := idx[i], idx[i+1]
		gap := s[cur[1]:next[0]]
		if gap == "" || strings.TrimSpace(gap) != "" {
			continue
		}
		if strings.EqualFold(s[cur[0]:cur[1]], s[next[0]:next[1]]) {
			count++
			i++
		}
	}
	return count
}

package services

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Category is the moderation verdict for one message
type Category string

const (
	CategoryNormal  Category = "normal"
	CategorySpam    Category = "spam"
	CategoryProfane Category = "profane"
)

// Flagged reports whether the category feeds the escalation tracker
func (c Category) Flagged() bool { return c == CategorySpam || c == CategoryProfane }

// ModerationPolicy is the classifier's data: what to strip, what to fold,
// what is always fine and what is never fine
type ModerationPolicy struct {
	// StripChars are removed during normalization to defeat spacing tricks
	StripChars string
	// Leet maps look-alike digits and symbols back to letters
	Leet map[rune]rune
	// AllowList tokens short-circuit to normal; checked before the blocklist
	// because the stretched patterns are loose
	AllowList []string
	// Blocklist tokens are matched as substrings of the normalized text
	Blocklist []string
	// StretchedPatterns catch blocklisted words with characters injected
	// between their letters
	StretchedPatterns []string
	// SymbolRunLength is the minimum length of a symbol-only message to be spam
	SymbolRunLength int
	// RepeatRunLength is the minimum run of one identical character to be spam
	RepeatRunLength int
}

// DefaultModerationPolicy returns the canonical Thai/English policy
func DefaultModerationPolicy() ModerationPolicy {
	return ModerationPolicy{
		StripChars: "_-.*,~|/\\'\"`",
		Leet: map[rune]rune{
			'0': 'o', '1': 'i', '3': 'e', '4': 'a', '5': 's', '7': 't',
			'@': 'a', '$': 's', '!': 'i',
		},
		AllowList: []string{
			"สวัสดี", "หวัดดี", "ขอบคุณ", "ขอบใจ",
			"hello", "thankyou", "thanks",
		},
		Blocklist: []string{
			"เหี้ย", "สัส", "ควย", "เย็ด", "แตด", "ชิบหาย", "ระยำ", "ส้นตีน", "อีดอก",
			"fuck", "shit", "bitch", "asshole", "cunt", "bastard", "motherf",
		},
		StretchedPatterns: []string{
			`เห[^ก-ฮ]{0,3}ี[^ก-ฮ]{0,3}ย`,
			`ส[^ก-ฮ]{0,2}ั[^ก-ฮ]{0,2}ส`,
			`ค[^ก-ฮ]{0,2}ว[^ก-ฮ]{0,2}ย`,
			`เ[^ก-ฮ]{0,2}ย[^ก-ฮ]{0,2}็[^ก-ฮ]{0,2}ด`,
			`f[^a-z]{0,2}u[^a-z]{0,2}c[^a-z]{0,2}k`,
			`s[^a-z]?h[^a-z]?i[^a-z]?t`,
			`b[^a-z]{0,2}i[^a-z]{0,2}t[^a-z]{0,2}c[^a-z]{0,2}h`,
		},
		SymbolRunLength: 3,
		RepeatRunLength: 4,
	}
}

// Classifier maps a message to normal, spam or profane. It is safe for
// concurrent use
type Classifier struct {
	policy   ModerationPolicy
	strip    map[rune]bool
	allow    []string
	block    []string
	patterns []*regexp.Regexp
}

// NewClassifier compiles the policy. It panics on an invalid pattern, since
// patterns are program data
func NewClassifier(policy ModerationPolicy) *Classifier {
	c := &Classifier{policy: policy, strip: make(map[rune]bool)}
	for _, r := range policy.StripChars {
		c.strip[r] = true
	}
	for _, t := range policy.AllowList {
		c.allow = append(c.allow, c.normalize(t))
	}
	for _, t := range policy.Blocklist {
		c.block = append(c.block, c.fold(c.normalize(t)))
	}
	for _, p := range policy.StretchedPatterns {
		c.patterns = append(c.patterns, regexp.MustCompile(p))
	}
	return c
}

// normalize lowercases and removes whitespace and evasion separators
func (c *Classifier) normalize(text string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || c.strip[r] {
			return -1
		}
		return r
	}, foldText(text))
}

// fold maps look-alike characters to letters
func (c *Classifier) fold(s string) string {
	return strings.Map(func(r rune) rune {
		if to, ok := c.policy.Leet[r]; ok {
			return to
		}
		return r
	}, s)
}

// Classify returns the moderation category of text
func (c *Classifier) Classify(text string) Category {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return CategoryNormal
	}

	// A message made only of separators normalizes to nothing; it can still be spam
	if normalized := c.normalize(raw); normalized != "" {
		// Ages and birthdays must never trip the filters
		if isAllDigits(normalized) || datePattern.MatchString(raw) {
			return CategoryNormal
		}

		for _, t := range c.allow {
			if strings.Contains(normalized, t) {
				return CategoryNormal
			}
		}

		folded := c.fold(normalized)
		for _, t := range c.block {
			if strings.Contains(folded, t) {
				return CategoryProfane
			}
		}
		for _, re := range c.patterns {
			if re.MatchString(folded) {
				return CategoryProfane
			}
		}
	}

	if c.isSpam(raw) {
		return CategorySpam
	}
	return CategoryNormal
}

func (c *Classifier) isSpam(raw string) bool {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)

	symbolsOnly, hasLetter := true, false
	for _, r := range compact {
		if isScriptLetter(r) || unicode.IsLetter(r) {
			hasLetter = true
		}
		if !unicode.IsPunct(r) && !unicode.IsSymbol(r) {
			symbolsOnly = false
		}
	}
	if symbolsOnly && utf8.RuneCountInString(compact) >= c.policy.SymbolRunLength {
		return true
	}
	if hasRepeatedRun(foldText(compact), c.policy.RepeatRunLength) {
		return true
	}
	return !hasLetter
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

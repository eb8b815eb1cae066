package services

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"line-register-bot/models"
)

// RejectReason explains why a validator refused an input
type RejectReason string

const (
	ReasonNone              RejectReason = ""
	ReasonEmpty             RejectReason = "empty"
	ReasonLength            RejectReason = "length"
	ReasonCharset           RejectReason = "charset"
	ReasonForbidden         RejectReason = "forbidden"
	ReasonSkipNotAllowed    RejectReason = "skip_not_allowed"
	ReasonRepeated          RejectReason = "repeated"
	ReasonKeyboardMash      RejectReason = "keyboard_mash"
	ReasonSameAsRealName    RejectReason = "same_as_real_name"
	ReasonSwapped           RejectReason = "swapped"
	ReasonNotNumber         RejectReason = "not_number"
	ReasonAgeRange          RejectReason = "age_range"
	ReasonDateFormat        RejectReason = "date_format"
	ReasonDateInvalid       RejectReason = "date_invalid"
	ReasonUnknownDepartment RejectReason = "unknown_department"
)

// Verdict is the outcome of validating one input
type Verdict struct {
	OK     bool
	Reason RejectReason
	// Value is the cleaned value to store (trimmed text, canonical department, ...)
	Value string
	// Age is set for accepted age inputs
	Age int
	// Skipped is set when an optional field was explicitly skipped
	Skipped bool
}

func accept(value string) Verdict        { return Verdict{OK: true, Value: value} }
func reject(reason RejectReason) Verdict { return Verdict{Reason: reason} }

// Department is a known department with the aliases users may type for it
type Department struct {
	Name    string
	Aliases []string
}

// ValidationPolicy is the threshold table shared by every field validator
type ValidationPolicy struct {
	NameMinLen      int
	NameMaxLen      int
	NickMaxLen      int
	AgeMin          int
	AgeMax          int
	RepeatRunLength int
	MashRunLength   int
	ReportMinLen    int
	ReportTitleMax  int
	ReportDetailMax int
	ForbiddenNames  []string
	SkipTokens      []string
	Departments     []Department
}

// DefaultDepartments is used when no department list is configured
var DefaultDepartments = []Department{
	{Name: "ไอที", Aliases: []string{"ไอที", "it", "information technology"}},
	{Name: "บัญชี", Aliases: []string{"บัญชี", "accounting"}},
	{Name: "การตลาด", Aliases: []string{"การตลาด", "marketing"}},
	{Name: "ทรัพยากรบุคคล", Aliases: []string{"ทรัพยากรบุคคล", "บุคคล", "hr", "human resources"}},
	{Name: "ฝ่ายขาย", Aliases: []string{"ฝ่ายขาย", "ขาย", "sales"}},
	{Name: "ฝ่ายผลิต", Aliases: []string{"ฝ่ายผลิต", "ผลิต", "production"}},
}

// DefaultValidationPolicy returns the canonical policy (age 1–80)
func DefaultValidationPolicy() ValidationPolicy {
	return ValidationPolicy{
		NameMinLen:      2,
		NameMaxLen:      20,
		NickMaxLen:      15,
		AgeMin:          1,
		AgeMax:          80,
		RepeatRunLength: 3,
		MashRunLength:   4,
		ReportMinLen:    2,
		ReportTitleMax:  100,
		ReportDetailMax: 1000,
		ForbiddenNames: []string{
			"สวัสดี", "หวัดดี", "สวัสดีครับ", "สวัสดีค่ะ", "ดีครับ", "ดีค่ะ",
			"hello", "hi", "hey", "test", "ทดสอบ", "admin", "แอดมิน",
			"bot", "บอท", "name", "ชื่อ", "abc", "xxx", "zzz", "null", "none",
			"ไม่บอกชื่อ",
		},
		SkipTokens:  []string{"ข้าม", "skip", "ไม่บอก"},
		Departments: DefaultDepartments,
	}
}

// ParseDepartments reads entries of the form "name|alias|alias"
func ParseDepartments(entries []string) []Department {
	var out []Department
	for _, e := range entries {
		parts := strings.Split(e, "|")
		name := strings.TrimSpace(parts[0])
		if name == "" {
			continue
		}
		d := Department{Name: name, Aliases: []string{name}}
		for _, a := range parts[1:] {
			if a = strings.TrimSpace(a); a != "" {
				d.Aliases = append(d.Aliases, a)
			}
		}
		out = append(out, d)
	}
	return out
}

type departmentMatcher struct {
	name     string
	contains []string
	words    []*regexp.Regexp
}

var datePattern = regexp.MustCompile(`^(\d{2})/(\d{2})/(\d{4})$`)

// Validator checks raw inputs for every profile field against one policy
type Validator struct {
	policy      ValidationPolicy
	forbidden   map[string]bool
	skip        map[string]bool
	departments []departmentMatcher
}

// NewValidator compiles the policy's lookup tables
func NewValidator(policy ValidationPolicy) *Validator {
	v := &Validator{
		policy:    policy,
		forbidden: make(map[string]bool),
		skip:      make(map[string]bool),
	}
	for _, w := range policy.ForbiddenNames {
		v.forbidden[foldText(w)] = true
	}
	for _, w := range policy.SkipTokens {
		v.skip[foldText(w)] = true
	}
	for _, d := range policy.Departments {
		m := departmentMatcher{name: d.Name}
		for _, a := range d.Aliases {
			a = foldText(a)
			if isASCII(a) {
				// ASCII aliases must match whole words so "it" does not hit "edit"
				m.words = append(m.words, regexp.MustCompile(`\b`+regexp.QuoteMeta(a)+`\b`))
			} else {
				m.contains = append(m.contains, a)
			}
		}
		v.departments = append(v.departments, m)
	}
	return v
}

// Policy returns the policy the validator was built from
func (v *Validator) Policy() ValidationPolicy { return v.policy }

// IsSkip reports whether text is an explicit "skip" token
func (v *Validator) IsSkip(text string) bool { return v.skip[foldText(text)] }

// Validate checks text for the given field
func (v *Validator) Validate(field models.Field, text string) Verdict {
	switch field {
	case models.FieldRealName:
		return v.validateName(text, v.policy.NameMaxLen)
	case models.FieldNickName:
		return v.validateName(text, v.policy.NickMaxLen)
	case models.FieldAge:
		return v.validateAge(text)
	case models.FieldBirthday:
		return v.validateBirthday(text)
	case models.FieldDepartment:
		return v.validateDepartment(text)
	case models.FieldReportTitle:
		return v.validateFreeText(text, v.policy.ReportTitleMax)
	case models.FieldReportDetail:
		return v.validateFreeText(text, v.policy.ReportDetailMax)
	}
	return reject(ReasonEmpty)
}

func (v *Validator) validateName(text string, maxLen int) Verdict {
	text = strings.TrimSpace(text)
	if text == "" {
		return reject(ReasonEmpty)
	}
	folded := foldText(text)
	if v.skip[folded] {
		return reject(ReasonSkipNotAllowed)
	}
	n := utf8.RuneCountInString(text)
	if n < v.policy.NameMinLen || n > maxLen {
		return reject(ReasonLength)
	}
	for _, r := range text {
		if !isScriptLetter(r) && !unicode.IsSpace(r) {
			return reject(ReasonCharset)
		}
	}
	if v.forbidden[folded] {
		return reject(ReasonForbidden)
	}
	if hasRepeatedRun(folded, v.policy.RepeatRunLength) {
		return reject(ReasonRepeated)
	}
	if looksMashed(text, v.policy.MashRunLength) {
		return reject(ReasonKeyboardMash)
	}
	return accept(text)
}

// looksMashed flags a word that has mashRun or more Thai consonants in a row
// and no vowel or tone mark anywhere
func looksMashed(text string, mashRun int) bool {
	if mashRun <= 0 {
		return false
	}
	for _, word := range strings.Fields(text) {
		run, longest, marked := 0, 0, false
		for _, r := range word {
			switch {
			case isThaiConsonant(r):
				run++
				if run > longest {
					longest = run
				}
			case isThaiVowelOrMark(r):
				marked = true
				run = 0
			default:
				run = 0
			}
		}
		if !marked && longest >= mashRun {
			return true
		}
	}
	return false
}

func (v *Validator) validateAge(text string) Verdict {
	text = strings.TrimSpace(text)
	if text == "" {
		return reject(ReasonEmpty)
	}
	if v.skip[foldText(text)] {
		return reject(ReasonSkipNotAllowed)
	}
	for _, r := range text {
		if r < '0' || r > '9' {
			return reject(ReasonNotNumber)
		}
	}
	age, err := strconv.Atoi(text)
	if err != nil || age < v.policy.AgeMin || age > v.policy.AgeMax {
		return reject(ReasonAgeRange)
	}
	return Verdict{OK: true, Value: strconv.Itoa(age), Age: age}
}

func (v *Validator) validateBirthday(text string) Verdict {
	text = strings.TrimSpace(text)
	if v.skip[foldText(text)] {
		return Verdict{OK: true, Skipped: true}
	}
	if _, _, ok := ParseBirthday(text); !ok {
		if datePattern.MatchString(text) {
			return reject(ReasonDateInvalid)
		}
		return reject(ReasonDateFormat)
	}
	return accept(text)
}

// IsValidBirthday reports whether text is a real DD/MM/YYYY date or a skip token
func (v *Validator) IsValidBirthday(text string) bool {
	return v.validateBirthday(text).OK
}

// ParseBirthday parses a strict, zero-padded DD/MM/YYYY date and returns its
// day and month. Years from 2400 on are Buddhist Era and are checked as year-543
func ParseBirthday(text string) (day int, month time.Month, ok bool) {
	m := datePattern.FindStringSubmatch(text)
	if m == nil {
		return 0, 0, false
	}
	d, _ := strconv.Atoi(m[1])
	mo, _ := strconv.Atoi(m[2])
	y, _ := strconv.Atoi(m[3])
	if y >= 2400 {
		y -= 543
	}
	if y < 1 || mo < 1 || mo > 12 || d < 1 {
		return 0, 0, false
	}
	t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || t.Month() != time.Month(mo) || t.Year() != y {
		return 0, 0, false
	}
	return d, time.Month(mo), true
}

func (v *Validator) validateDepartment(text string) Verdict {
	folded := foldText(text)
	if folded == "" {
		return reject(ReasonEmpty)
	}
	for _, d := range v.departments {
		for _, c := range d.contains {
			if strings.Contains(folded, c) {
				return accept(d.name)
			}
		}
		for _, re := range d.words {
			if re.MatchString(folded) {
				return accept(d.name)
			}
		}
	}
	return reject(ReasonUnknownDepartment)
}

// DepartmentExamples lists up to n canonical department names
func (v *Validator) DepartmentExamples(n int) []string {
	var out []string
	for _, d := range v.policy.Departments {
		if len(out) == n {
			break
		}
		out = append(out, d.Name)
	}
	return out
}

func (v *Validator) validateFreeText(text string, maxLen int) Verdict {
	text = strings.TrimSpace(text)
	if text == "" {
		return reject(ReasonEmpty)
	}
	n := utf8.RuneCountInString(text)
	if n < v.policy.ReportMinLen || n > maxLen {
		return reject(ReasonLength)
	}
	return accept(text)
}

// LikelySwapped flags a real name / nickname pair that looks entered in the
// wrong order: the nickname is markedly longer, or the real name is very
// short while the nickname is long
func LikelySwapped(realName, nickName string) bool {
	r := utf8.RuneCountInString(strings.TrimSpace(realName))
	n := utf8.RuneCountInString(strings.TrimSpace(nickName))
	return n >= r+3 || (r <= 3 && n >= 6)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

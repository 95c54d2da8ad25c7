package app

import (
	"regexp"
	"sync"

	"textinput-service/internal/domain"
)

var compiledPatterns sync.Map // pattern -> *regexp.Regexp

// Evaluate reports whether submission matches the author pattern anywhere
// within it. A nil result means the question is not auto-graded and must be
// kept distinct from a false result.
func Evaluate(pattern, submission string) *bool {
	if pattern == "" {
		return nil
	}
	matched := compilePattern(pattern).MatchString(submission)
	return &matched
}

// compilePattern falls back to a literal match for patterns RE2 rejects
// (e.g. lookarounds or backreferences).
func compilePattern(pattern string) *regexp.Regexp {
	if re, ok := compiledPatterns.Load(pattern); ok {
		return re.(*regexp.Regexp)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		re = regexp.MustCompile(regexp.QuoteMeta(pattern))
	}
	actual, _ := compiledPatterns.LoadOrStore(pattern, re)
	return actual.(*regexp.Regexp)
}

// hintFor returns the hint to reveal for a graded, incorrect answer.
func hintFor(q domain.Question, correct *bool) string {
	if correct == nil || *correct || !q.HasSolution() {
		return ""
	}
	return q.Data.Hint
}

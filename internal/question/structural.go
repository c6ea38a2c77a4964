package question

import (
	"fmt"
	"slices"
	"strings"
)

const (
	maxVignetteLen    = 2000
	maxExplanationLen = 2000
)

// StructuralError describes why a draft was rejected.
type StructuralError struct {
	Message   string
	Retryable bool
}

func (e *StructuralError) Error() string {
	return "structural check: " + e.Message
}

var binaryOptions = [][]string{{"yes", "no"}, {"true", "false"}}

// CheckStructure verifies a draft has the fields and option count the
// template asks for.
func CheckStructure(d Draft, t Template) error {
	fail := func(format string, args ...any) error {
		return &StructuralError{Message: fmt.Sprintf(format, args...), Retryable: true}
	}

	switch {
	case strings.TrimSpace(d.Vignette) == "":
		return fail("vignette is empty")
	case len(d.Vignette) > maxVignetteLen:
		return fail("vignette exceeds %d characters", maxVignetteLen)
	case strings.TrimSpace(d.Question) == "":
		return fail("question is empty")
	case strings.TrimSpace(d.Answer) == "":
		return fail("answer is empty")
	case strings.TrimSpace(d.Explanation) == "":
		return fail("explanation is empty")
	case len(d.Explanation) > maxExplanationLen:
		return fail("explanation exceeds %d characters", maxExplanationLen)
	}

	if len(d.Options) != t.OptionCount {
		return fail("level %d needs %d options, got %d", t.Level, t.OptionCount, len(d.Options))
	}
	for i, opt := range d.Options {
		if strings.TrimSpace(opt) == "" {
			return fail("option %d is empty", i+1)
		}
	}

	switch t.Form {
	case FormBinary:
		got := []string{strings.ToLower(strings.TrimSpace(d.Options[0])), strings.ToLower(strings.TrimSpace(d.Options[1]))}
		if !slices.ContainsFunc(binaryOptions, func(want []string) bool { return slices.Equal(got, want) }) {
			return fail("binary options must be Yes/No or True/False, got %v", d.Options)
		}
		if answerIndex(d.Answer, d.Options) < 0 {
			return fail("answer %q is not one of the options", d.Answer)
		}
	case FormMultipleChoice, FormTwoOption:
		if answerIndex(d.Answer, d.Options) < 0 {
			return fail("answer %q does not identify an option", d.Answer)
		}
	}
	return nil
}

// answerIndex resolves an answer given as a letter ("B", "b)", "Option B")
// or as the option text. Returns -1 if it matches nothing.
func answerIndex(answer string, options []string) int {
	a := strings.TrimSpace(answer)
	for i, opt := range options {
		if strings.EqualFold(a, strings.TrimSpace(opt)) {
			return i
		}
	}

	a = strings.TrimPrefix(strings.ToUpper(a), "OPTION ")
	a = strings.TrimRight(a, ").:")
	if len(a) == 1 {
		if i := int(a[0] - 'A'); i >= 0 && i < len(options) {
			return i
		}
	}
	return -1
}

package action

import (
	"fmt"
	"regexp"
	"unicode"
)

// Qualifier decides whether an element's text still looks untranslated.
type Qualifier func(text string) bool

// ScriptRun returns a Qualifier matching text that contains at least minRun
// consecutive letters of the given Unicode script (for example "Latin"),
// i.e. text still in the source language.
func ScriptRun(script string, minRun int) (Qualifier, error) {
	if _, ok := unicode.Scripts[script]; !ok {
		return nil, fmt.Errorf("action: unknown unicode script %q", script)
	}
	if minRun < 1 {
		minRun = 1
	}
	re, err := regexp.Compile(fmt.Sprintf(`\p{%s}{%d,}`, script, minRun))
	if err != nil {
		return nil, fmt.Errorf("action: script pattern: %w", err)
	}
	return re.MatchString, nil
}

// AnyText qualifies every element.
func AnyText(string) bool { return true }

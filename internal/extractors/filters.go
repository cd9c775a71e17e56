package extractors

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	// shared technical ID shapes
	elementIDPattern = regexp.MustCompile(`^[pt]\d+$`)
	snakeIDPattern   = regexp.MustCompile(`^[a-z]+_[a-z0-9]+$`)

	// PNML specific shapes: node IDs, operator IDs, coordinates
	pnmlIDPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^noid$`),
		regexp.MustCompile(`^[a-z]\d+$`),
		regexp.MustCompile(`^[a-z]\d+_op_\d+$`),
		regexp.MustCompile(`^x\d+$`),
		regexp.MustCompile(`^y\d+$`),
	}

	punctuationReplacer = strings.NewReplacer("<", " ", ">", " ", "-", " ")
)

// boilerplateWords are modelling-tool artefacts that show up as labels.
var boilerplateWords = []string{"op", "woped", "designer", "version"}

// sharedStructuralWords are dropped for every diagram type.
var sharedStructuralWords = []string{"http", "www", "org", "berlin", "hu", "op", "woped", "designer", "version"}

// termFilter holds the per-format filtering rules.
type termFilter struct {
	idPatterns []*regexp.Regexp
	structural map[string]struct{}
}

func newTermFilter(idPatterns []*regexp.Regexp, structural []string) termFilter {
	set := make(map[string]struct{}, len(structural)+len(sharedStructuralWords))
	for _, w := range structural {
		set[w] = struct{}{}
	}
	for _, w := range sharedStructuralWords {
		set[w] = struct{}{}
	}
	return termFilter{idPatterns: idPatterns, structural: set}
}

// technical lowercases and trims terms, drops the ones that are IDs, numbers
// or boilerplate, and strips markup punctuation from the rest.
func (f termFilter) technical(terms []string) []string {
	result := make([]string, 0, len(terms))
	for _, term := range terms {
		t := strings.ToLower(strings.TrimSpace(term))
		if !f.isMeaningful(t) {
			continue
		}
		t = strings.Join(strings.Fields(punctuationReplacer.Replace(t)), " ")
		if len([]rune(t)) <= 1 {
			continue
		}
		result = append(result, t)
	}
	return result
}

func (f termFilter) isMeaningful(t string) bool {
	if len([]rune(t)) <= 1 {
		return false
	}
	if isDigits(t) || strings.HasPrefix(t, "<") || strings.Contains(t, "sequenceflow") {
		return false
	}
	for _, w := range boilerplateWords {
		if t == w {
			return false
		}
	}
	if elementIDPattern.MatchString(t) || snakeIDPattern.MatchString(t) {
		return false
	}
	for _, p := range f.idPatterns {
		if p.MatchString(t) {
			return false
		}
	}
	return true
}

// structuralTerms drops every term containing a structural word. Words are
// compared whole, so "op" does not knock out "operator".
func (f termFilter) structuralTerms(terms []string) []string {
	result := make([]string, 0, len(terms))
	for _, term := range terms {
		if !f.hasStructuralWord(term) {
			result = append(result, term)
		}
	}
	return result
}

func (f termFilter) hasStructuralWord(term string) bool {
	words := strings.FieldsFunc(strings.ToLower(term), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if _, ok := f.structural[w]; ok {
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// Package emotion tags a completed reply with the emotion label that voice
// synthesis and the avatar consume.
package emotion

import (
	"strings"
)

// Label is an emotion tag. The closed set is listed in Labels; a tagged
// reply may carry any free-form value.
type Label string

const (
	Teasing Label = "teasing"
	Calm    Label = "calm"
	Serious Label = "serious"
	Happy   Label = "happy"
	Sad     Label = "sad"
	Neutral Label = "neutral"
)

// Labels is the closed label set in precedence order.
var Labels = []Label{Teasing, Calm, Serious, Happy, Sad, Neutral}

// Known reports whether l belongs to the closed set.
func (l Label) Known() bool {
	for _, k := range Labels {
		if l == k {
			return true
		}
	}
	return false
}

func (l Label) String() string { return string(l) }

// TagPrefix opens an explicit emotion tag such as "<emotion=happy>".
const TagPrefix = "<emotion="

// Result is the outcome of Extract: the label and the reply with the label
// removed.
type Result struct {
	Label Label
	Text  string
}

// Matcher tries one way of reading a label off a reply.
type Matcher func(text string) (Result, bool)

// matchers run in order; the first match wins.
var matchers = []Matcher{
	MatchTag,
	MatchBareWord,
}

// Extract returns the emotion label of a reply and the reply without it.
// It never fails: text matching no form is Neutral.
func Extract(text string) Result {
	for _, m := range matchers {
		if r, ok := m(text); ok {
			return r
		}
	}
	return Result{Label: Neutral, Text: strings.TrimSpace(text)}
}

// MatchTag reads the "<emotion=X>rest" form. X is taken verbatim up to the
// first '>'. A tag that is never closed does not match.
func MatchTag(text string) (Result, bool) {
	if !strings.HasPrefix(text, TagPrefix) {
		return Result{}, false
	}
	end := strings.IndexByte(text, '>')
	if end < 0 {
		return Result{}, false
	}
	return Result{
		Label: Label(text[len(TagPrefix):end]),
		Text:  strings.TrimSpace(text[end+1:]),
	}, true
}

// MatchBareWord reads a reply that opens with a known label followed by a
// space or a newline, ignoring case.
func MatchBareWord(text string) (Result, bool) {
	for _, l := range Labels {
		n := len(l)
		if len(text) <= n {
			continue
		}
		if sep := text[n]; sep != ' ' && sep != '\n' {
			continue
		}
		if strings.EqualFold(text[:n], string(l)) {
			return Result{Label: l, Text: strings.TrimSpace(text[n:])}, true
		}
	}
	return Result{}, false
}

package transcribe

import (
	"regexp"
	"strings"
)

// rule is one normalization step. Rules run in declaration order; earlier
// rules may produce text matched by later ones.
type rule struct {
	re   *regexp.Regexp
	repl string
}

// rules strips greetings, stage directions, and filler from recognized
// Korean meeting speech before summarization.
var rules = []rule{
	// Greetings and sign-offs
	{regexp.MustCompile(`안녕하세요|안녕하십니까|감사합니다|수고하세요|수고하셨습니다`), ""},

	// Stage directions from the recognizer
	{regexp.MustCompile(`\(침묵\)|\(조용\)|\(잠시\)|\(웃음\)|\(박수\)`), ""},
	{regexp.MustCompile(`네네|네 네|음음|음 음|아 네|그 그`), ""},

	// Rhetorical padding
	{regexp.MustCompile(`어떻게 생각하시나요\?|어떻게 생각하십니까\?`), "?"},
	{regexp.MustCompile(`그러니까|그니까|그래서`), ""},

	// Back-to-back filler tokens collapse to one
	{regexp.MustCompile(`(네 )+`), "네 "},
	{regexp.MustCompile(`(음 )+`), "음 "},

	// Whitespace cleanup: blank-line runs first, then space runs
	{regexp.MustCompile(`\n\s*\n`), "\n"},
	{regexp.MustCompile(`[ \t]+`), " "},
}

// Normalize applies the ordered rule table and trims the result. It is
// deterministic: the same input always yields the same output.
func Normalize(text string) string {
	for _, r := range rules {
		text = r.re.ReplaceAllString(text, r.repl)
	}
	return strings.TrimSpace(text)
}

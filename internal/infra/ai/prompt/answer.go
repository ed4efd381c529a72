package prompt

import (
	"regexp"
	"strings"
)

// NoClearAnswer is returned when the model reply carries no answer marker.
const NoClearAnswer = "No clear answer found."

// answerRe captures the rest of the line after the first answer marker.
var answerRe = regexp.MustCompile(`(?:Answer:|Answer|Response:)([^\n]*)`)

// ExtractAnswer pulls the answer line out of a free-form model reply.
func ExtractAnswer(reply string) string {
	m := answerRe.FindStringSubmatch(reply)
	if m == nil {
		return NoClearAnswer
	}
	return strings.TrimSpace(m[1])
}

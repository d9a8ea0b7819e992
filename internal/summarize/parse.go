package summarize

import "strings"

// parseSummary extracts the four labeled sections from free-form model
// output. The service contract is advisory, so parsing is best-effort: each
// blank-line-delimited block is scanned for an exact label, and a label that
// never appears (or carries no text) leaves its field at the sentinel.
func parseSummary(text string) *Summary {
	result := &Summary{
		Agenda:      NoContent,
		Discussion:  NoContent,
		Decisions:   NoContent,
		ActionItems: NoContent,
	}

	for _, block := range strings.Split(text, "\n\n") {
		block = strings.TrimSpace(block)
		switch {
		case strings.Contains(block, labelAgenda):
			setSection(&result.Agenda, block, labelAgenda)
		case strings.Contains(block, labelDiscussion):
			setSection(&result.Discussion, block, labelDiscussion)
		case strings.Contains(block, labelDecisions):
			setSection(&result.Decisions, block, labelDecisions)
		case strings.Contains(block, labelActionItems):
			setSection(&result.ActionItems, block, labelActionItems)
		}
	}
	return result
}

// setSection stores the text following the label, keeping the sentinel when
// the extraction is empty.
func setSection(dst *string, block, label string) {
	_, after, ok := strings.Cut(block, label)
	if !ok {
		return
	}
	if content := strings.TrimSpace(after); content != "" {
		*dst = content
	}
}

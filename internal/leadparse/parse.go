// Package leadparse turns raw OCR text from a business card into a Lead.
//
// The extraction is heuristic: email, website and phone are located by
// pattern anywhere in the text, while name, job title and company are taken
// from the first three lines in that order. Parsing never fails; sparse or
// noisy text yields a lead with more absent fields.
package leadparse

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/card-ingest/internal/model"
)

var (
	lineSplit  = regexp.MustCompile(`\r?\n`)
	emailToken = regexp.MustCompile(`(?i)[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}`)
	urlToken   = regexp.MustCompile(`\b((?:https?://)?(?:[a-zA-Z0-9-]+\.)+[a-zA-Z]{2,})(/[\w\-._~:/?#\[\]@!$&'()*+,;=]+)?\b`)
	phoneToken = regexp.MustCompile(`(?:\+?\d[\s\-.()]*){7,}`)
)

// Parse extracts a Lead from OCR text. It never returns an error: when the
// assembled lead fails validation the unvalidated lead is returned as is.
func Parse(text string) model.Lead {
	lines := splitLines(text)
	joined := strings.Join(lines, " ")

	lead := model.Lead{
		Email:   emailToken.FindString(joined),
		Phone:   NormalizePhone(phoneToken.FindString(joined)),
		Website: NormalizeWebsite(urlToken.FindString(joined)),
	}

	if len(lines) > 0 {
		lead.Name = lines[0]
	}
	if len(lines) > 1 {
		lead.JobTitle = lines[1]
	}
	if len(lines) > 2 {
		lead.Company = lines[2]
	}

	return validOr(lead, Validate, func(err error) {
		zap.L().Debug("leadparse: validation failed, using unvalidated lead", zap.Error(err))
	})
}

// splitLines returns the trimmed, non-empty lines of text.
func splitLines(text string) []string {
	raw := lineSplit.Split(text, -1)
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

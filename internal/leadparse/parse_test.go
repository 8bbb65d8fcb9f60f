package leadparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/card-ingest/internal/model"
)

func TestParse_SampleCard(t *testing.T) {
	text := "Olivia Wilson\nReal Estate Agent\n+123-456-7890\nwww.reallygreatsite.com\nhello@reallygreatsite.com"

	lead := Parse(text)

	assert.Equal(t, "Olivia Wilson", lead.Name)
	assert.Equal(t, "Real Estate Agent", lead.JobTitle)
	assert.Equal(t, "+1234567890", lead.Phone)
	assert.Equal(t, "reallygreatsite.com", lead.Website)
	assert.Equal(t, "hello@reallygreatsite.com", lead.Email)
	// Line three is always taken as the company, even when it is a phone number.
	assert.Equal(t, "+123-456-7890", lead.Company)
	assert.Empty(t, lead.Source)
}

func TestParse_EmptyInput(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\n\r\n", " \t \n  "} {
		assert.Equal(t, model.Lead{}, Parse(text), "input %q", text)
	}
}

func TestParse_NoPatterns(t *testing.T) {
	lead := Parse("Jane Doe\nChief Wizard\nAcme Widgets\nSecond floor")

	assert.Equal(t, "Jane Doe", lead.Name)
	assert.Equal(t, "Chief Wizard", lead.JobTitle)
	assert.Equal(t, "Acme Widgets", lead.Company)
	assert.Empty(t, lead.Email)
	assert.Empty(t, lead.Phone)
	assert.Empty(t, lead.Website)
}

func TestParse_FewerThanThreeLines(t *testing.T) {
	lead := Parse("  Solo Name  ")
	assert.Equal(t, "Solo Name", lead.Name)
	assert.Empty(t, lead.JobTitle)
	assert.Empty(t, lead.Company)

	lead = Parse("A\r\nB")
	assert.Equal(t, "A", lead.Name)
	assert.Equal(t, "B", lead.JobTitle)
	assert.Empty(t, lead.Company)
}

func TestParse_WebsiteFromEmailDomain(t *testing.T) {
	lead := Parse("John Smith\nCTO\nAcme\njohn@acme.com")

	assert.Equal(t, "john@acme.com", lead.Email)
	assert.Equal(t, "acme.com", lead.Website)
}

func TestParse_WebsiteIsFirstURLToken(t *testing.T) {
	lead := Parse("John Smith\njohn@acme.com\nhttps://www.acme-tools.com/contact/")
	assert.Equal(t, "acme.com", lead.Website)

	lead = Parse("John Smith\nhttps://www.acme-tools.com/contact/\njohn@acme.com")
	assert.Equal(t, "acme-tools.com/contact", lead.Website)
}

func TestParse_FirstMatchWins(t *testing.T) {
	lead := Parse("Ann\nCTO\nFoo Inc\nann@foo.com bob@bar.com\n555-123-4567\nfoo.com bar.com")

	assert.Equal(t, "ann@foo.com", lead.Email)
	assert.Equal(t, "5551234567", lead.Phone)
	assert.Equal(t, "foo.com", lead.Website)
}

func TestParse_ShortDigitRunIsNotPhone(t *testing.T) {
	lead := Parse("Suite 100\nRoom 42")
	assert.Empty(t, lead.Phone)
}

func TestParse_NoisyInputNeverPanics(t *testing.T) {
	inputs := []string{
		"@@@@",
		"...\n---\n+++",
		"http://",
		"a@b",
		"\x00\x01 binary \xff",
		"+1+2+3+4+5+6+7+8",
	}
	for _, in := range inputs {
		require.NotPanics(t, func() { Parse(in) }, "input %q", in)
	}
}

func TestParse_PlusSeparatedDigits(t *testing.T) {
	lead := Parse("Name\n+1+2+3+4+5+6+7")
	assert.Equal(t, "Name", lead.Name)
	assert.Equal(t, "+1234567", lead.Phone)
}

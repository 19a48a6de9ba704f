// Package locale resolves BCP 47 tags and formats the human-readable parts of
// a summary. It never influences computation.
package locale

import (
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sdpower/agentusage/internal/types"
)

// Default is used when no locale is requested.
var Default = language.AmericanEnglish

// Parse resolves a BCP 47 tag. An empty string yields Default.
func Parse(tag string) (language.Tag, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return Default, nil
	}
	t, err := language.Parse(strings.ReplaceAll(tag, "_", "-"))
	if err != nil {
		return language.Und, types.ValidationError{Field: "locale", Message: err.Error()}
	}
	return t, nil
}

// FormatDate renders a calendar date the way the tag's region writes it.
func FormatDate(t time.Time, tag language.Tag) string {
	return t.Format(dateLayout(tag))
}

func dateLayout(tag language.Tag) string {
	base, _ := tag.Base()
	region, _ := tag.Region()

	switch base.String() {
	case "en":
		switch region.String() {
		case "US", "PH", "ZZ":
			return "Jan 2, 2006"
		}
		return "2 Jan 2006"
	case "de", "ru", "pl", "cs", "fi", "nb", "da", "tr":
		return "02.01.2006"
	case "fr", "es", "it", "pt", "nl":
		return "02/01/2006"
	case "ja", "zh", "ko":
		return "2006/01/02"
	}
	return "2006-01-02"
}

// Printer returns a message printer whose %d and %.2f verbs use the tag's
// digit grouping.
func Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag)
}

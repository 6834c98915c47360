package formula

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
)

// Localization is a fixed LocalizationContext.
type Localization struct {
	locale   language.Tag
	location *time.Location
}

// NewLocalization creates a localization context; a nil location means UTC.
func NewLocalization(locale language.Tag, location *time.Location) *Localization {
	if location == nil {
		location = time.UTC
	}
	return &Localization{locale: locale, location: location}
}

// DefaultLocalization is English in UTC.
func DefaultLocalization() *Localization {
	return NewLocalization(language.English, time.UTC)
}

// ParseLocalization builds a localization from a BCP 47 tag and an IANA zone
// name. Empty strings select the defaults.
func ParseLocalization(locale, timezone string) (*Localization, error) {
	tag := language.English
	if locale != "" {
		t, err := language.Parse(locale)
		if err != nil {
			return nil, fmt.Errorf("invalid locale '%s': %w", locale, err)
		}
		tag = t
	}
	loc := time.UTC
	if timezone != "" {
		l, err := time.LoadLocation(timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone '%s': %w", timezone, err)
		}
		loc = l
	}
	return NewLocalization(tag, loc), nil
}

func (l *Localization) Locale() language.Tag     { return l.locale }
func (l *Localization) Location() *time.Location { return l.location }

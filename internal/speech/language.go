package speech

import (
	"golang.org/x/text/language"

	"mirror/internal/profiles"
)

// SelectMessage picks the voice message and language tag to speak for a
// person, given the configured display language. Matching uses BCP-47
// semantics, so "en-US" finds an "en" translation and regional variants
// collapse sensibly; when nothing matches, the person's own preference wins.
func SelectMessage(person *profiles.Person, preferred string) (message, tag string) {
	available := person.Languages()
	tags := make([]language.Tag, 0, len(available))
	names := make([]string, 0, len(available))
	for _, raw := range available {
		parsed, err := language.Parse(raw)
		if err != nil {
			continue
		}
		tags = append(tags, parsed)
		names = append(names, raw)
	}

	if len(tags) == 0 {
		chosen := person.Language
		if chosen == "" {
			chosen = preferred
		}
		return person.Message(chosen), chosen
	}

	desired, err := language.Parse(preferred)
	if err != nil {
		desired = language.English
	}
	matcher := language.NewMatcher(tags)
	_, index, confidence := matcher.Match(desired)
	chosen := names[index]
	if confidence == language.No {
		// Nothing close to the display language; fall back to the person's
		// declared preference, which Languages() listed first.
		chosen = names[0]
	}
	return person.Message(chosen), chosen
}

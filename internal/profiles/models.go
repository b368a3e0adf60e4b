package profiles

import (
	"strings"
	"time"
)

// Person is one enrolled identity with its presentation metadata.
type Person struct {
	ID           string
	DisplayName  string
	Relationship string
	// Language is the preferred BCP-47 tag for the voice message.
	Language     string
	VoiceMessage string
	// Translations maps language tags to localized voice messages.
	Translations map[string]string
	PhotoRef     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Message returns the voice message for the requested language, falling back
// preference → requested → English → generated greeting.
func (p *Person) Message(language string) string {
	if language == "" {
		language = p.Language
	}
	if msg, ok := p.Translations[language]; ok && strings.TrimSpace(msg) != "" {
		return msg
	}
	if strings.TrimSpace(p.VoiceMessage) != "" {
		return p.VoiceMessage
	}
	if msg, ok := p.Translations["en"]; ok && strings.TrimSpace(msg) != "" {
		return msg
	}
	name := p.DisplayName
	if name == "" {
		name = p.ID
	}
	return "Hello " + name + "!"
}

// Languages returns all language tags the person has messages for, with the
// preferred language first. Used by the speech matcher.
func (p *Person) Languages() []string {
	tags := make([]string, 0, len(p.Translations)+1)
	if p.Language != "" {
		tags = append(tags, p.Language)
	}
	for tag := range p.Translations {
		if tag != p.Language {
			tags = append(tags, tag)
		}
	}
	return tags
}

// Encoding is one enrolled face embedding for a person.
type Encoding struct {
	ID       int64
	PersonID string
	Vector   []float32
}

// Event is one recognition history row.
type Event struct {
	ID         int64
	EventID    string
	PersonID   string
	Distance   float64
	FrameSeq   uint64
	Announced  bool
	OccurredAt time.Time
}

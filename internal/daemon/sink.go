package daemon

import (
	"mirror/internal/presence"
	"mirror/internal/speech"
	"mirror/internal/web"
)

// compositeSink fans presentation updates out to the web display and the
// speech runner. Audio failure is absorbed inside the speaker, so a broken
// TTS command never disturbs what the mirror shows.
type compositeSink struct {
	daemon *Daemon
}

func (s *compositeSink) Render(state presence.State) {
	d := s.daemon
	if d.webServer == nil {
		return
	}
	display := web.DisplayState{
		Kind:  state.Kind.String(),
		Since: state.Since,
	}
	if state.Kind == presence.Known {
		display.PersonID = state.PersonID
		if person, ok := d.people[state.PersonID]; ok {
			display.DisplayName = person.DisplayName
			display.Relationship = person.Relationship
			message, _ := speech.SelectMessage(person, d.cfg.Speech.DefaultLanguage)
			display.Message = message
		}
	}
	d.webServer.PushState(display)
}

func (s *compositeSink) Announce(personID string, _ uint64) {
	d := s.daemon
	person, ok := d.people[personID]
	if !ok {
		return
	}
	d.announce(person)
}

// Package speech delivers announcement text to the player.
package speech

import "log/slog"

// Speaker is the text-output channel.
// Say must not block the caller for I/O.
type Speaker interface {
	Say(text string)
}

// LogSpeaker writes announcements to the structured log.
type LogSpeaker struct{}

// Say implements Speaker.
func (LogSpeaker) Say(text string) {
	slog.Info("say", "text", text)
}

// Multi fans one announcement out to several speakers.
type Multi []Speaker

// Say implements Speaker.
func (m Multi) Say(text string) {
	for _, s := range m {
		if s != nil {
			s.Say(text)
		}
	}
}

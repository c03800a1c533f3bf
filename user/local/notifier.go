// Package local is a notifier that only writes to the log.
package local

import "github.com/rs/zerolog/log"

// Notifier logs every message instead of sending it anywhere.
type Notifier struct{}

// NewNotifier creates a logging notifier.
func NewNotifier() *Notifier {
	return &Notifier{}
}

func (n *Notifier) Send(message string) {
	log.Info().Str("message", message).Msg("notification")
}

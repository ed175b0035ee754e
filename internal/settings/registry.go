// Package settings is the runtime Config Store: a fixed registry of named string
// settings whose values administrators can override at runtime. Overrides are
// persisted; a key without an override reads as its registered default.
package settings

import "sort"

// Registered keys.
const (
	EmailRecipients      = "EMAIL_RECIPIENTS"
	EmailSubject         = "EMAIL_SUBJECT"
	EmailMessage         = "EMAIL_MESSAGE"
	EmailSendTime        = "EMAIL_SEND_TIME"
	WeatherFetchInterval = "WEATHER_FETCH_INTERVAL"
)

// Definition describes one registered setting.
type Definition struct {
	Key     string
	Default string
	Help    string
}

// Registry maps keys to their definitions.
type Registry map[string]Definition

// DefaultRegistry returns the settings known to newsplaces.
func DefaultRegistry() Registry {
	return NewRegistry(
		Definition{Key: EmailRecipients, Default: "admin@localhost.com", Help: "List of recipients for notifications (separated by commas)"},
		Definition{Key: EmailSubject, Default: "News for today", Help: "Email subject line for the daily newsletter"},
		Definition{Key: EmailMessage, Default: "Hello, here is the news published today:", Help: "The text of the letter"},
		Definition{Key: EmailSendTime, Default: "08:00", Help: "Time to send the daily newsletter (H:MM)"},
		Definition{Key: WeatherFetchInterval, Default: "01:00", Help: "Interval between runs of the weather fetch task (H:MM)"},
	)
}

func NewRegistry(defs ...Definition) Registry {
	r := make(Registry, len(defs))
	for _, d := range defs {
		r[d.Key] = d
	}
	return r
}

// Keys returns the registered keys sorted.
func (r Registry) Keys() []string {
	out := make([]string, 0, len(r))
	for k := range r {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

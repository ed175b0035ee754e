package mail

import (
	"context"
	"strings"

	logx "newsplaces/pkg/logx"
)

// LogSender writes messages to the logger instead of delivering them.
type LogSender struct {
	from string
	log  logx.Logger
}

func NewLog(from string, log logx.Logger) *LogSender {
	return &LogSender{from: from, log: log}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	if msg.From == "" {
		msg.From = s.from
	}
	if err := msg.validate(); err != nil {
		return err
	}
	s.log.Info("mail (log backend)",
		logx.String("from", msg.From),
		logx.String("to", strings.Join(msg.To, ", ")),
		logx.String("subject", msg.Subject),
		logx.String("body", msg.Body),
	)
	return nil
}

// New builds the Sender for cfg.Backend.
func New(cfg Config, log logx.Logger) (Sender, error) {
	log = log.With(logx.String("comp", "mail"), logx.String("backend", backendName(cfg.Backend)))
	if backendName(cfg.Backend) == "smtp" {
		return NewSMTP(cfg, log)
	}
	return NewLog(cfg.From, log), nil
}

func backendName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "log"
	}
	return s
}

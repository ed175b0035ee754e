package mail

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrNoRecipients = errors.New("mail: no recipients")
	ErrNoSender     = errors.New("mail: from address required")
)

type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
}

func (m Message) validate() error {
	if strings.TrimSpace(m.From) == "" {
		return ErrNoSender
	}
	if len(m.To) == 0 {
		return ErrNoRecipients
	}
	return nil
}

// Sender delivers a message. Implementations are safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Config is the resolved form of config.mail.
type Config struct {
	Backend  string
	From     string
	Host     string
	Port     int
	Username string
	Password string
	TLS      string
	Timeout  time.Duration
}

const (
	defaultPort    = 587
	defaultTimeout = 15 * time.Second
)

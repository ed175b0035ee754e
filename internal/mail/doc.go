// Package mail delivers outgoing email.
//
// A Sender is selected by config.mail.backend: "smtp" delivers through an SMTP
// relay using github.com/wneessen/go-mail, "log" writes the message to the logger
// and is meant for development.
package mail

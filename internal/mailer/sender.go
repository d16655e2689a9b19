// Package mailer provides the outbound email transports (SMTP,
// Web3Forms, AWS SES) behind one Sender interface, plus the Liquid
// template service that personalizes each message.
package mailer

import "context"

// Message is one outbound email.
type Message struct {
	To        string `json:"to"`
	Subject   string `json:"subject"`
	HTMLBody  string `json:"html_body"`
	FromName  string `json:"from_name"`
	FromEmail string `json:"from_email"`
}

// Sender delivers a single message. Implementations must be safe to
// call repeatedly from the sequential campaign loop.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

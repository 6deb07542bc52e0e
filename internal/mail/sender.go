// Package mail sends transactional email. The Sender interface keeps the
// SMTP transport swappable in tests.
package mail

// Message is a transport-independent email message.
type Message struct {
	To      []string
	Subject string
	Body    string
	IsHTML  bool
}

// Sender delivers email messages.
type Sender interface {
	Send(message *Message) error
}

package ports

import "context"

type EmailMessage struct {
	Template string
	To       string
	Subject  string
	HTML     string
	Text     string
}

type MailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

type VerificationEmail struct {
	To      string
	URL     string
	Name    string
	AppName string
}

type PasswordResetEmail struct {
	To      string
	URL     string
	AppName string
}

type EmailRenderer interface {
	Verification(data VerificationEmail) (EmailMessage, error)
	PasswordReset(data PasswordResetEmail) (EmailMessage, error)
}

// EmailDispatcher delivers in the background. Dispatch never blocks and never
// reports delivery failures to the caller.
type EmailDispatcher interface {
	Dispatch(msg EmailMessage)
}

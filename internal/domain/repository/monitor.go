package repository

// Monitor is the fire-and-forget monitoring sink. Implementations must
// never let a delivery failure propagate into the triggering operation.
type Monitor interface {
	Notify(message string)
	NotifyWithFile(message, path string)
}

// Mailer delivers moderation outcome mails to submitters.
type Mailer interface {
	Send(to, subject, body string) error
}

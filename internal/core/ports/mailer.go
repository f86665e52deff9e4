package ports

// Mailer sends a transactional email. Dispatch is synchronous: callers rely
// on the returned error to decide whether persisted token state must be
// rolled back.
type Mailer interface {
	Send(to, subject, body string) error
}

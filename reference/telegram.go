package reference

// Telegram is a notifier with its own long-poll loop for inbound commands.
type Telegram interface {
	Notifier
	Start()
}

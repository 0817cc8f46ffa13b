package ws

const (
	MessageReceived = "message.received"
	PageReceived    = "page.received"
)

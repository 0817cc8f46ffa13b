package contracts

import "strings"

// AmqpMessage is the message structure for AMQP.
type AmqpMessage struct {
	OwnerID string `json:"ownerId"`
	Data    []byte `json:"data"`
}

// Routing keys, one per activity action.
const (
	EventNodeLogin      = "node.login"
	EventNodeLogout     = "node.logout"
	EventNodeActivity   = "node.activity"
	EventNodeTimeout    = "node.timeout"
	EventNodeDisconnect = "node.disconnect"
)

var ActivityRoutingKeys = []string{
	EventNodeLogin,
	EventNodeLogout,
	EventNodeActivity,
	EventNodeTimeout,
	EventNodeDisconnect,
}

func RoutingKeyFor(action string) string {
	return "node." + strings.ToLower(action)
}

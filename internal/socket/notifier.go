package socket

import (
	"encoding/json"
	"log"

	"github.com/nassert93-sketch/PharmaConnect/internal/routing"
)

// Notifier adapts the hub to the routing engine's notification port.
// Marshal failures are logged and dropped; the side channel carries no
// delivery guarantee.
type Notifier struct {
	Hub *Hub
}

func NewNotifier(hub *Hub) *Notifier {
	return &Notifier{Hub: hub}
}

func (n *Notifier) NotifyUser(userID string, ev routing.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("notify %s: marshal event: %v", userID, err)
		return
	}
	if err := n.Hub.Send(userID, payload); err != nil {
		log.Printf("notify %s: %v", userID, err)
	}
}

func (n *Notifier) Announce(ev routing.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("announce: marshal event: %v", err)
		return
	}
	n.Hub.SendAdmins(payload)
}

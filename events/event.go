package events

import "encoding/json"

type DomainEvent interface {
	EventName() string
	Topic() string
}

type Publisher interface {
	Publish(topic string, data []byte) error
}

// Publish encodes e as JSON and sends it on its own topic.
func Publish(p Publisher, e DomainEvent) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	return p.Publish(e.Topic(), data)
}

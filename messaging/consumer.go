package messaging

import (
	"log"
)

// RequestHandler is called for each decoded confirm request.
type RequestHandler interface {
	HandleConfirmRequest(env *Envelope, req ConfirmRequest)
}

// Consumer subscribes to the requests topic and routes messages to the handler.
type Consumer struct {
	client  *Client
	topic   string
	handler RequestHandler
}

func NewConsumer(client *Client, topic string, handler RequestHandler) *Consumer {
	return &Consumer{
		client:  client,
		topic:   topic,
		handler: handler,
	}
}

func (c *Consumer) Start() error {
	return c.client.Subscribe(c.topic, c.handleMessage)
}

func (c *Consumer) handleMessage(_ string, payload []byte) {
	env, err := DecodeEnvelope(payload)
	if err != nil {
		log.Printf("consumer: decode error: %v", err)
		return
	}

	switch p := env.Payload.(type) {
	case ConfirmRequest:
		c.handler.HandleConfirmRequest(env, p)
	default:
		log.Printf("consumer: ignoring %s on requests topic", env.MsgType)
	}
}

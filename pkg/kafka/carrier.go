package kafka

import (
	"github.com/segmentio/kafka-go"
)

// HeaderCarrier adapts Kafka message headers to the OpenTelemetry
// TextMapCarrier interface so trace context survives the hop through a topic.
type HeaderCarrier struct {
	headers *[]kafka.Header
}

// NewHeaderCarrier wraps the headers of msg.
func NewHeaderCarrier(msg *kafka.Message) HeaderCarrier {
	return HeaderCarrier{headers: &msg.Headers}
}

func (c HeaderCarrier) Get(key string) string {
	for _, h := range *c.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c HeaderCarrier) Set(key, value string) {
	for i, h := range *c.headers {
		if h.Key == key {
			(*c.headers)[i].Value = []byte(value)
			return
		}
	}
	*c.headers = append(*c.headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c HeaderCarrier) Keys() []string {
	keys := make([]string, 0, len(*c.headers))
	for _, h := range *c.headers {
		keys = append(keys, h.Key)
	}
	return keys
}

package event

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/segmentio/kafka-go"
)

const eventHeader = "event"

// Keyed payloads choose their partition key; everything else is spread
// round robin by the hash balancer.
type Keyed interface {
	PartitionKey() string
}

type KafkaClient struct {
	writer *kafka.Writer
	reader *kafka.Reader
}

func NewKafkaClient(host string, port string, topic string, group string) (*KafkaClient, error) {
	address := net.JoinHostPort(host, port)

	writer := &kafka.Writer{
		Addr:         kafka.TCP(address),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  []string{address},
		Topic:    topic,
		GroupID:  group,
		MinBytes: 1,
		MaxBytes: 10e6,
	})

	return &KafkaClient{
		writer: writer,
		reader: reader,
	}, nil
}

// Publish writes payload as JSON with the event name in a header.
func (c *KafkaClient) Publish(ctx context.Context, event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.WriteMessage(ctx, event, data, partitionKey(payload))
}

func (c *KafkaClient) WriteMessage(ctx context.Context, event string, data []byte, key string) error {
	message := kafka.Message{
		Value:   data,
		Headers: []kafka.Header{{Key: eventHeader, Value: []byte(event)}},
	}
	if key != "" {
		message.Key = []byte(key)
	}
	return c.writer.WriteMessages(ctx, message)
}

// ReadMessage blocks until the next message of the consumer group arrives.
func (c *KafkaClient) ReadMessage(ctx context.Context) (string, []byte, error) {
	message, err := c.reader.ReadMessage(ctx)
	if err != nil {
		return "", nil, err
	}

	for _, header := range message.Headers {
		if header.Key == eventHeader {
			return string(header.Value), message.Value, nil
		}
	}
	return "", nil, fmt.Errorf("message at offset %d has no %q header", message.Offset, eventHeader)
}

func (c *KafkaClient) Close() error {
	writerErr := c.writer.Close()
	readerErr := c.reader.Close()
	if writerErr != nil {
		return writerErr
	}
	return readerErr
}

func partitionKey(payload interface{}) string {
	if keyed, ok := payload.(Keyed); ok {
		return keyed.PartitionKey()
	}
	return ""
}

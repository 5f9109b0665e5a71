package message

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sync"

	"github.com/Shopify/sarama"

	"github.com/isoterra/sculpt/sculpt"
)

// KafkaMaxMessageSize is the max message size in bytes for a Kafka message.
const KafkaMaxMessageSize = 980 * sculpt.Kilo

// DefaultTopicPrefix is used when no prefix is configured.
const DefaultTopicPrefix = "sculpt"

// KafkaConfig describes kafka servers and how events are published to them.
type KafkaConfig struct {
	Servers     []string
	TopicPrefix string // topics are <prefix>-geometry and <prefix>-color
	BufferSize  int    // max buffered messages before the producer blocks
	Compression string // payload compression: none, snappy, or zstd
}

var topicCleaner = regexp.MustCompile(`[^a-zA-Z0-9\._\-]+`)

// KafkaPublisher sends events as JSON to a topic per event kind.  Messages are keyed by
// chunk coordinate so events for one chunk stay ordered within a partition.
type KafkaPublisher struct {
	producer sarama.AsyncProducer
	prefix   string

	closeOnce sync.Once
	drained   chan struct{}
}

// NewKafkaPublisher connects an async producer to the configured servers.
func NewKafkaPublisher(kc KafkaConfig) (*KafkaPublisher, error) {
	if len(kc.Servers) == 0 {
		return nil, sculpt.NewConfigError("kafka", "no servers given")
	}
	config := sarama.NewConfig()
	config.Producer.MaxMessageBytes = KafkaMaxMessageSize
	if kc.BufferSize > 0 {
		config.ChannelBufferSize = kc.BufferSize
	}
	producer, err := sarama.NewAsyncProducer(kc.Servers, config)
	if err != nil {
		return nil, err
	}
	p := newKafkaPublisher(producer, kc.TopicPrefix)
	sculpt.Infof("Kafka topics for mutations: %s, %s\n", p.Topic(GeometryKind), p.Topic(ColorKind))
	return p, nil
}

func newKafkaPublisher(producer sarama.AsyncProducer, prefix string) *KafkaPublisher {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	p := &KafkaPublisher{
		producer: producer,
		prefix:   topicCleaner.ReplaceAllString(prefix, "-"),
		drained:  make(chan struct{}),
	}
	go func() {
		for err := range producer.Errors() {
			sculpt.Errorf("error on kafka send to topic %q: %v\n", err.Msg.Topic, err.Err)
		}
		close(p.drained)
	}()
	return p
}

// Topic returns the topic receiving events of the given kind.
func (p *KafkaPublisher) Topic(kind string) string {
	return p.prefix + "-" + kind
}

func (p *KafkaPublisher) Publish(e Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("unable to marshal %s for kafka: %w", e, err)
	}
	if len(value) > KafkaMaxMessageSize {
		return fmt.Errorf("%s is %d bytes, over the kafka limit of %d", e, len(value), KafkaMaxMessageSize)
	}
	p.producer.Input() <- &sarama.ProducerMessage{
		Topic: p.Topic(e.Kind()),
		Key:   sarama.StringEncoder(e.Chunk.String()),
		Value: sarama.ByteEncoder(value),
	}
	return nil
}

// Close flushes queued messages and stops the producer.
func (p *KafkaPublisher) Close() (err error) {
	p.closeOnce.Do(func() {
		if err = p.producer.Close(); err != nil {
			sculpt.Errorf("Kafka producer had error on close: %v\n", err)
		} else {
			sculpt.Infof("Successfully shut down kafka producer.\n")
		}
		<-p.drained
	})
	return
}

package broker

import (
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
)

func TestProducerHashesMessageKeys(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, "stock-movements")
	defer p.Close()

	// Per-key partition affinity depends on the hash balancer.
	assert.IsType(t, &kafka.Hash{}, p.writer.Balancer)
	assert.Equal(t, kafka.RequireAll, p.writer.RequiredAcks)
}

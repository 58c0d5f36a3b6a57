package services

import (
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"

	"skillswap-service/internal/models"
)

// StreamService publishes every durably stored chat message to Kafka for
// downstream notification and analytics consumers. Messages are keyed by
// room ID; with the hash partitioner this keeps per-room order on the
// stream as well.
type StreamService struct {
	producer sarama.SyncProducer
	topic    string
}

func NewStreamService(brokers []string, topic string) (*StreamService, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Partitioner = sarama.NewHashPartitioner
	config.Version = sarama.V2_0_0_0
	config.ClientID = "skillswap-service"

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return &StreamService{producer: producer, topic: topic}, nil
}

func (s *StreamService) PublishMessage(msg *models.ChatMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	_, _, err = s.producer.SendMessage(&sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(msg.RoomID),
		Value: sarama.ByteEncoder(data),
	})
	return err
}

func (s *StreamService) Close() error {
	return s.producer.Close()
}

// Package events publishes job lifecycle notifications to Kafka. Delivery
// is fire-and-forget: the pipeline never blocks on, or fails because of,
// an event that could not be sent.
package events

import (
	"encoding/json"
	"time"

	"github.com/IBM/sarama"

	"videogen/models"
)

type JobEvent struct {
	JobID           string `json:"job_id"`
	Status          string `json:"status"`
	ProgressPercent int    `json:"progress_percent"`
	CurrentStep     string `json:"current_step"`
	ErrorMessage    string `json:"error_message,omitempty"`
	OccurredAt      int64  `json:"occurred_at"`
}

type Producer interface {
	PublishJobEvent(event *JobEvent) error
	Close() error
}

type producer struct {
	producer sarama.SyncProducer
	topic    string
}

func NewProducer(brokers []string, topic string) (Producer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true

	p, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}

	return &producer{producer: p, topic: topic}, nil
}

func (p *producer) PublishJobEvent(event *JobEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.JobID),
		Value: sarama.ByteEncoder(data),
	}

	_, _, err = p.producer.SendMessage(msg)
	return err
}

func (p *producer) Close() error {
	return p.producer.Close()
}

// FromJob builds the event payload for a job snapshot.
func FromJob(job *models.Job) *JobEvent {
	return &JobEvent{
		JobID:           job.ID,
		Status:          string(job.Status),
		ProgressPercent: job.ProgressPercent,
		CurrentStep:     job.CurrentStep,
		ErrorMessage:    job.ErrorMessage,
		OccurredAt:      time.Now().Unix(),
	}
}

package events

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medteam/internal/domain/consultation"
	"medteam/pkg/errors"
)

type publishedMessage struct {
	topic string
	key   string
	event interface{}
}

type fakeProducer struct {
	sent []publishedMessage
	err  error
}

func (f *fakeProducer) Publish(_ context.Context, topic string, key string, event interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, publishedMessage{topic: topic, key: key, event: event})
	return nil
}

func finishedRun() *consultation.Run {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	run := &consultation.Run{
		ID:        uuid.New(),
		StartedAt: start,
		Provider:  "together",
		Model:     "meta-llama/Llama-3-8b-chat-hf",
		Roles: []consultation.RoleOutcome{
			{Role: "Cardiologist", Status: consultation.RoleSucceeded},
			{Role: "Psychologist", Status: consultation.RoleFailed, Error: "timeout"},
			{Role: "Pulmonologist", Status: consultation.RoleSucceeded},
		},
		Diagnosis:   strings.Repeat("d", 300),
		OutputPath:  "results/final_diagnosis.txt",
		TotalTokens: 321,
	}
	run.Finalize(start.Add(2 * time.Second))
	return run
}

func TestPublisher_Record(t *testing.T) {
	producer := &fakeProducer{}
	publisher := NewPublisher(producer, "consultations.completed")
	run := finishedRun()

	require.NoError(t, publisher.Record(context.Background(), run))
	require.Len(t, producer.sent, 1)

	msg := producer.sent[0]
	assert.Equal(t, "consultations.completed", msg.topic)
	assert.Equal(t, run.ID.String(), msg.key)

	event, ok := msg.event.(*ConsultationCompletedEvent)
	require.True(t, ok)
	assert.Equal(t, TypeConsultationCompleted, event.Type)
	assert.Equal(t, consultation.StatusPartial, event.Status)
	assert.Equal(t, []string{"Psychologist"}, event.FailedRoles)
	assert.Equal(t, int64(2000), event.DurationMs)
	assert.Equal(t, strings.Repeat("d", 200)+"...", event.DiagnosisPreview)
	assert.NotEmpty(t, event.ID)
}

func TestPublisher_RecordError(t *testing.T) {
	producer := &fakeProducer{err: errors.New("broker down")}
	publisher := NewPublisher(producer, "consultations.completed")

	err := publisher.Record(context.Background(), finishedRun())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.Equal(t, "kafka", publisher.Name())
}

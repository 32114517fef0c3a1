package kafka

// Topic definitions for Kafka event streaming
const (
	// TopicConsultationCompleted carries one event per finished run
	TopicConsultationCompleted = "consultations.completed"
)

package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{w: w}

	err := p.Publish(context.Background(), Event{
		Type:    FollowupCreated,
		Key:     "1:42",
		Payload: map[string]int{"client_id": 42},
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "1:42", string(msg.Key))
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, FollowupCreated, string(msg.Headers[0].Value))

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, FollowupCreated, decoded.Type)
	assert.False(t, decoded.OccurredAt.IsZero())
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	p := &KafkaPublisher{w: &fakeWriter{err: errors.New("broker down")}}
	err := p.Publish(context.Background(), Event{Type: IntakeCreated})
	assert.Error(t, err)
}

func TestNewKafkaPublisher_SingleAttempt(t *testing.T) {
	p := NewKafkaPublisher([]string{"localhost:9092"}, "wellness-events")
	w, ok := p.w.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, 1, w.MaxAttempts)
	assert.Equal(t, "wellness-events", w.Topic)
	assert.False(t, w.Async)
}

func TestKafkaPublisher_WriteErrorIsNotRetried(t *testing.T) {
	w := &countingWriter{err: errors.New("leader not available")}
	p := &KafkaPublisher{w: w}
	assert.Error(t, p.Publish(context.Background(), Event{Type: FollowupStatusChanged}))
	assert.Equal(t, 1, w.calls)
}

type countingWriter struct {
	calls int
	err   error
}

func (c *countingWriter) WriteMessages(context.Context, ...kafka.Message) error {
	c.calls++
	return c.err
}

func (c *countingWriter) Close() error { return nil }

func TestNop(t *testing.T) {
	assert.NoError(t, Nop{}.Publish(context.Background(), Event{Type: SubmissionCreated}))
}

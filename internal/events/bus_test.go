package events

import (
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublish_DeliversToSubscribers(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var received []*Event
	bus.Subscribe(ReportGenerated, func(event *Event) {
		received = append(received, event)
	})

	bus.Publish(ReportGenerated, "evaluation", map[string]interface{}{"report_id": "r1"})

	require.Len(t, received, 1)
	assert.Equal(t, ReportGenerated, received[0].Type)
	assert.Equal(t, "evaluation", received[0].Module)
	assert.Equal(t, "r1", received[0].Data["report_id"])
	assert.False(t, received[0].Timestamp.IsZero())
}

func TestPublish_IgnoresOtherEventTypes(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	calls := 0
	bus.Subscribe(BackupCompleted, func(*Event) { calls++ })

	bus.Publish(ReportGenerated, "evaluation", nil)

	assert.Zero(t, calls)
}

func TestPublish_PreservesSubscriptionOrder(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var order []string
	bus.Subscribe(BatchCompleted, func(*Event) { order = append(order, "first") })
	bus.Subscribe(BatchCompleted, func(*Event) { order = append(order, "second") })

	bus.Publish(BatchCompleted, "scheduler", nil)

	assert.Equal(t, []string{"first", "second"}, order)
}

func TestSubscribeAll(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	received := make(map[EventType]int)
	bus.SubscribeAll(func(event *Event) { received[event.Type]++ })

	for _, eventType := range AllEventTypes {
		bus.Publish(eventType, "test", nil)
	}

	assert.Len(t, received, len(AllEventTypes))
}

func TestUnsubscribe_StopsDelivery(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	calls := 0
	id := bus.Subscribe(ReportGenerated, func(*Event) { calls++ })

	bus.Publish(ReportGenerated, "evaluation", nil)
	bus.Unsubscribe(id)
	bus.Publish(ReportGenerated, "evaluation", nil)

	assert.Equal(t, 1, calls)
}

func TestUnsubscribe_RemovesFromEveryEventType(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	calls := 0
	id := bus.SubscribeAll(func(*Event) { calls++ })
	bus.Unsubscribe(id)

	for _, eventType := range AllEventTypes {
		bus.Publish(eventType, "test", nil)
	}

	assert.Zero(t, calls)
}

func TestUnsubscribe_KeepsRemainingOrder(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var order []string
	bus.Subscribe(BatchCompleted, func(*Event) { order = append(order, "first") })
	middle := bus.Subscribe(BatchCompleted, func(*Event) { order = append(order, "middle") })
	bus.Subscribe(BatchCompleted, func(*Event) { order = append(order, "last") })

	bus.Unsubscribe(middle)
	bus.Publish(BatchCompleted, "scheduler", nil)

	assert.Equal(t, []string{"first", "last"}, order)
}

func TestUnsubscribe_UnknownIDIsNoOp(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	calls := 0
	bus.Subscribe(BackupCompleted, func(*Event) { calls++ })
	bus.Unsubscribe(SubscriptionID(999))

	bus.Publish(BackupCompleted, "reliability", nil)

	assert.Equal(t, 1, calls)
}

func TestPublishError(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var received *Event
	bus.Subscribe(ErrorOccurred, func(event *Event) { received = event })

	bus.PublishError("backup", fmt.Errorf("bucket unreachable"), map[string]interface{}{"bucket": "insight"})

	require.NotNil(t, received)
	assert.Equal(t, "bucket unreachable", received.Data["error"])
}

func TestToMap(t *testing.T) {
	score := 72.0
	data := ToMap(&ReportGeneratedData{
		ReportID:   "r1",
		EntityID:   "ACME",
		Category:   "High",
		Score:      &score,
		Narratives: 3,
	})

	assert.Equal(t, "r1", data["report_id"])
	assert.Equal(t, "ACME", data["entity_id"])
	assert.Equal(t, 72.0, data["score"])
	assert.Equal(t, float64(3), data["narratives"])
}

func TestToMap_ExplicitNullScore(t *testing.T) {
	data := ToMap(&ReportGeneratedData{ReportID: "r1", EntityID: "ACME", Category: "Pending"})

	_, present := data["score"]
	assert.True(t, present, "score must serialize as explicit null")
	assert.Nil(t, data["score"])
}

package eventstream_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/eventstream"
)

var _ = Describe("Event", func() {
	It("stamps a fresh envelope per event", func() {
		meta := eventstream.NewEventMeta(eventstream.EventTypeMemoryPersisted)

		Expect(meta.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
		Expect(meta.EventType).To(Equal("engram.memory.persisted"))
		Expect(meta.EventID).To(HavePrefix("evt_"))
		Expect(meta.EmittedAt).NotTo(BeZero())

		other := eventstream.NewEventMeta(eventstream.EventTypeMemoryPersisted)
		Expect(other.EventID).NotTo(Equal(meta.EventID))
	})

	It("marshals MemoryPersistedEvent with expected top-level keys", func() {
		event := eventstream.MemoryPersistedEvent{
			EventMeta:  eventstream.NewEventMeta(eventstream.EventTypeMemoryPersisted),
			ItemID:     "item-1",
			Level:      "working",
			SessionID:  "session-1",
			Importance: 0.4,
			TokenCount: 12,
		}

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		Expect(got).To(HaveKey("schema_version"))
		Expect(got).To(HaveKey("event_type"))
		Expect(got).To(HaveKey("event_id"))
		Expect(got).To(HaveKey("emitted_at"))
		Expect(got).To(HaveKey("item_id"))
		Expect(got).To(HaveKey("level"))
	})

	It("marshals CheckpointSavedEvent with its identifiers", func() {
		event := eventstream.CheckpointSavedEvent{
			EventMeta:    eventstream.NewEventMeta(eventstream.EventTypeCheckpointSaved),
			CheckpointID: "cp-1",
			AgentID:      "agent-1",
			SessionID:    "session-1",
			Sequence:     7,
		}

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		Expect(got).To(HaveKeyWithValue("checkpoint_id", "cp-1"))
		Expect(got).To(HaveKeyWithValue("sequence_number", float64(7)))
	})

	It("defines stable event constants", func() {
		Expect(eventstream.SchemaVersionV1).To(BeNumerically(">", 0))
		Expect(eventstream.EventTypeMemoryPersisted).To(Equal("engram.memory.persisted"))
		Expect(eventstream.EventTypeCheckpointSaved).To(Equal("engram.checkpoint.saved"))
	})

	It("provides ErrNilEvent for nil payload validation", func() {
		Expect(eventstream.ErrNilEvent).To(MatchError("nil event"))
	})
})

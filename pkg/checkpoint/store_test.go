package checkpoint_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/checkpoint"
)

var _ = Describe("Store", func() {
	var (
		store *checkpoint.Store
		path  string
		ctx   context.Context
	)

	newCheckpoint := func(agentID, sessionID string, sequence uint64) *checkpoint.Checkpoint {
		return checkpoint.NewCheckpoint(agentID, sessionID, checkpoint.NewAgentState(agentID), sequence)
	}

	BeforeEach(func() {
		ctx = context.Background()
		path = filepath.Join(GinkgoT().TempDir(), "checkpoints.json")
		store = checkpoint.NewStore(path, zap.NewNop())
	})

	Describe("SaveCheckpoint", func() {
		It("saves and loads by agent and session", func() {
			Expect(store.SaveCheckpoint(ctx, newCheckpoint("agent-1", "session-1", 1))).To(Succeed())

			loaded := store.LoadCheckpoint("agent-1", "session-1")

			Expect(loaded).NotTo(BeNil())
			Expect(loaded.Sequence).To(Equal(uint64(1)))
		})

		It("keeps the highest sequence when saves race out of order", func() {
			Expect(store.SaveCheckpoint(ctx, newCheckpoint("agent-1", "session-1", 1))).To(Succeed())
			Expect(store.SaveCheckpoint(ctx, newCheckpoint("agent-1", "session-1", 3))).To(Succeed())
			Expect(store.SaveCheckpoint(ctx, newCheckpoint("agent-1", "session-1", 2))).To(Succeed())

			loaded := store.LoadCheckpoint("agent-1", "session-1")

			Expect(loaded.Sequence).To(Equal(uint64(3)))
		})

		It("treats an equal sequence as a no-op", func() {
			first := newCheckpoint("agent-1", "session-1", 2)
			Expect(store.SaveCheckpoint(ctx, first)).To(Succeed())
			Expect(store.SaveCheckpoint(ctx, newCheckpoint("agent-1", "session-1", 2))).To(Succeed())

			Expect(store.LoadCheckpoint("agent-1", "session-1").ID).To(Equal(first.ID))
		})

		It("persists every accepted save to disk", func() {
			Expect(store.SaveCheckpoint(ctx, newCheckpoint("agent-1", "session-1", 1))).To(Succeed())

			data, err := os.ReadFile(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring("agent-1"))
		})
	})

	Describe("GetLatestCheckpoint", func() {
		It("returns the highest sequence across sessions", func() {
			Expect(store.SaveCheckpoint(ctx, newCheckpoint("agent-1", "session-1", 2))).To(Succeed())
			Expect(store.SaveCheckpoint(ctx, newCheckpoint("agent-1", "session-2", 5))).To(Succeed())

			latest := store.GetLatestCheckpoint("agent-1")

			Expect(latest).NotTo(BeNil())
			Expect(latest.SessionID).To(Equal("session-2"))
		})

		It("returns nil for unknown agents", func() {
			Expect(store.GetLatestCheckpoint("nobody")).To(BeNil())
		})
	})

	Describe("GetCheckpointsBySession", func() {
		It("returns checkpoints from every agent in the session", func() {
			Expect(store.SaveCheckpoint(ctx, newCheckpoint("agent-1", "shared", 1))).To(Succeed())
			Expect(store.SaveCheckpoint(ctx, newCheckpoint("agent-2", "shared", 1))).To(Succeed())
			Expect(store.SaveCheckpoint(ctx, newCheckpoint("agent-1", "other", 1))).To(Succeed())

			Expect(store.GetCheckpointsBySession("shared")).To(HaveLen(2))
		})
	})

	Describe("DeleteCheckpoint", func() {
		It("removes by id", func() {
			cp := newCheckpoint("agent-1", "session-1", 1)
			Expect(store.SaveCheckpoint(ctx, cp)).To(Succeed())

			Expect(store.DeleteCheckpoint(ctx, cp.ID)).To(Succeed())

			Expect(store.LoadCheckpoint("agent-1", "session-1")).To(BeNil())
		})
	})

	Describe("ClearAgentCheckpoints", func() {
		It("removes only that agent's checkpoints", func() {
			Expect(store.SaveCheckpoint(ctx, newCheckpoint("agent-1", "session-1", 1))).To(Succeed())
			Expect(store.SaveCheckpoint(ctx, newCheckpoint("agent-2", "session-1", 1))).To(Succeed())

			Expect(store.ClearAgentCheckpoints(ctx, "agent-1")).To(Succeed())

			Expect(store.LoadCheckpoint("agent-1", "session-1")).To(BeNil())
			Expect(store.LoadCheckpoint("agent-2", "session-1")).NotTo(BeNil())
		})
	})

	Describe("listings", func() {
		It("lists distinct agents and sessions sorted", func() {
			Expect(store.SaveCheckpoint(ctx, newCheckpoint("beta", "s2", 1))).To(Succeed())
			Expect(store.SaveCheckpoint(ctx, newCheckpoint("alpha", "s1", 1))).To(Succeed())
			Expect(store.SaveCheckpoint(ctx, newCheckpoint("alpha", "s3", 1))).To(Succeed())

			Expect(store.ListAgents()).To(Equal([]string{"alpha", "beta"}))
			Expect(store.ListSessions("alpha")).To(Equal([]string{"s1", "s3"}))
		})
	})

	Describe("LoadFromDisk", func() {
		It("round-trips the collection through the file", func() {
			Expect(store.SaveCheckpoint(ctx, newCheckpoint("agent-1", "session-1", 4))).To(Succeed())

			reopened := checkpoint.NewStore(path, zap.NewNop())
			Expect(reopened.LoadFromDisk(ctx)).To(Succeed())

			loaded := reopened.LoadCheckpoint("agent-1", "session-1")
			Expect(loaded).NotTo(BeNil())
			Expect(loaded.Sequence).To(Equal(uint64(4)))
		})

		It("tolerates a missing file", func() {
			empty := checkpoint.NewStore(filepath.Join(GinkgoT().TempDir(), "none.json"), zap.NewNop())

			Expect(empty.LoadFromDisk(ctx)).To(Succeed())
			Expect(empty.ListAgents()).To(BeEmpty())
		})

		It("replaces in-memory contents wholesale", func() {
			other := checkpoint.NewStore(path, zap.NewNop())
			Expect(other.SaveCheckpoint(ctx, newCheckpoint("agent-9", "session-9", 1))).To(Succeed())

			Expect(store.SaveCheckpoint(ctx, newCheckpoint("agent-1", "session-1", 1))).To(Succeed())
			Expect(other.LoadFromDisk(ctx)).To(Succeed())

			Expect(other.ListAgents()).To(Equal([]string{"agent-1"}))
		})
	})
})

package inmemory_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/vector"
	"github.com/papercomputeco/engram/pkg/vector/inmemory"
)

var _ = Describe("InMemoryDriver", func() {
	var (
		ctx    context.Context
		driver *inmemory.InMemoryDriver
	)

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		driver, err = inmemory.NewInMemoryDriver(inmemory.Config{Dimensions: 3}, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("NewInMemoryDriver", func() {
		It("should error when dimensions are unset", func() {
			_, err := inmemory.NewInMemoryDriver(inmemory.Config{}, zap.NewNop())
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Add", func() {
		It("should upsert by id", func() {
			Expect(driver.Add(ctx, []vector.Document{
				{ID: "a", Embedding: []float32{1, 0, 0}, Payload: map[string]any{"content": "before"}},
			})).To(Succeed())
			Expect(driver.Add(ctx, []vector.Document{
				{ID: "a", Embedding: []float32{0, 1, 0}, Payload: map[string]any{"content": "after"}},
			})).To(Succeed())

			docs, err := driver.Get(ctx, []string{"a"})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].Content()).To(Equal("after"))

			stats, err := driver.Stats(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Count).To(Equal(int64(1)))
		})

		It("should reject mismatched dimensions", func() {
			err := driver.Add(ctx, []vector.Document{{ID: "a", Embedding: []float32{1, 0}}})
			Expect(err).To(MatchError(vector.ErrDimensions))
		})
	})

	Describe("Query", func() {
		BeforeEach(func() {
			Expect(driver.Add(ctx, []vector.Document{
				{ID: "x", Embedding: []float32{1, 0, 0}},
				{ID: "y", Embedding: []float32{0, 1, 0}},
				{ID: "xy", Embedding: []float32{1, 1, 0}},
			})).To(Succeed())
		})

		It("should rank by cosine similarity", func() {
			results, err := driver.Query(ctx, []float32{1, 0, 0}, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(3))

			Expect(results[0].ID).To(Equal("x"))
			Expect(results[0].Score).To(BeNumerically("~", 1.0, 0.0001))
			Expect(results[1].ID).To(Equal("xy"))
			Expect(results[2].ID).To(Equal("y"))
		})

		It("should truncate to topK", func() {
			results, err := driver.Query(ctx, []float32{1, 0, 0}, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
		})

		It("should reject mismatched query dimensions", func() {
			_, err := driver.Query(ctx, []float32{1, 0}, 3)
			Expect(err).To(MatchError(vector.ErrDimensions))
		})
	})

	Describe("Delete", func() {
		It("should remove documents and ignore unknown ids", func() {
			Expect(driver.Add(ctx, []vector.Document{
				{ID: "a", Embedding: []float32{1, 0, 0}},
			})).To(Succeed())

			Expect(driver.Delete(ctx, []string{"a", "missing"})).To(Succeed())

			stats, err := driver.Stats(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Count).To(BeZero())
		})
	})

	Describe("Clear", func() {
		It("should remove every document", func() {
			Expect(driver.Add(ctx, []vector.Document{
				{ID: "a", Embedding: []float32{1, 0, 0}},
				{ID: "b", Embedding: []float32{0, 1, 0}},
			})).To(Succeed())

			Expect(driver.Clear(ctx)).To(Succeed())

			stats, err := driver.Stats(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Count).To(BeZero())
		})
	})
})

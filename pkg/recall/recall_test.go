package recall_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/recall"
)

var _ = Describe("Strategy", func() {
	var strategy *recall.Strategy

	BeforeEach(func() {
		strategy = recall.NewStrategy(recall.DefaultConfig())
	})

	Describe("Rerank", func() {
		It("ranks fresher items above stale ones when all else is equal", func() {
			now := time.Now().UTC()
			items := []recall.Item{
				{ID: "stale", Content: "old note", Score: 0.5, Timestamp: now.AddDate(0, 0, -30)},
				{ID: "fresh", Content: "new note", Score: 0.5, Timestamp: now},
			}

			ranked := strategy.Rerank(items)

			Expect(ranked).To(HaveLen(2))
			Expect(ranked[0].ID).To(Equal("fresh"))
			Expect(ranked[0].FinalScore).To(BeNumerically(">", ranked[1].FinalScore))
		})

		It("scores recency monotonically with age", func() {
			now := time.Now().UTC()
			var previous float64 = 2
			for _, ageDays := range []int{0, 1, 7, 14, 60} {
				ranked := strategy.Rerank([]recall.Item{
					{ID: "m", Score: 0.5, Timestamp: now.AddDate(0, 0, -ageDays)},
				})
				Expect(ranked[0].FinalScore).To(BeNumerically("<", previous))
				previous = ranked[0].FinalScore
			}
		})

		It("halves the recency contribution after one half-life", func() {
			now := time.Now().UTC()
			config := recall.Config{RecencyWeight: 1, HalfLifeDays: 7}
			s := recall.NewStrategy(config)

			fresh := s.Rerank([]recall.Item{{ID: "a", Timestamp: now}})
			aged := s.Rerank([]recall.Item{{ID: "a", Timestamp: now.AddDate(0, 0, -7)}})

			Expect(fresh[0].FinalScore).To(BeNumerically("~", 1, 0.01))
			Expect(aged[0].FinalScore).To(BeNumerically("~", 0.5, 0.01))
		})

		It("treats future timestamps as maximally recent", func() {
			config := recall.Config{RecencyWeight: 1}
			s := recall.NewStrategy(config)

			ranked := s.Rerank([]recall.Item{
				{ID: "future", Timestamp: time.Now().UTC().Add(48 * time.Hour)},
			})

			Expect(ranked[0].FinalScore).To(BeNumerically("~", 1, 0.001))
		})

		It("boosts items with recorded accesses", func() {
			now := time.Now().UTC()
			items := []recall.Item{
				{ID: "quiet", Score: 0.5, Timestamp: now},
				{ID: "popular", Score: 0.5, Timestamp: now},
			}

			for i := 0; i < 9; i++ {
				strategy.RecordAccess("popular")
			}

			ranked := strategy.Rerank(items)

			Expect(ranked[0].ID).To(Equal("popular"))
		})

		It("weighs importance into the final score", func() {
			now := time.Now().UTC()
			ranked := strategy.Rerank([]recall.Item{
				{ID: "plain", Score: 0.5, Timestamp: now, Importance: 0},
				{ID: "vital", Score: 0.5, Timestamp: now, Importance: 1},
			})

			Expect(ranked[0].ID).To(Equal("vital"))
			diff := ranked[0].FinalScore - ranked[1].FinalScore
			Expect(diff).To(BeNumerically("~", 0.2, 0.001))
		})

		It("filters results below the minimum score", func() {
			minScore := 0.5
			s := recall.NewStrategy(recall.Config{
				VectorWeight: 0.7,
				BM25Weight:   0.3,
				MinScore:     &minScore,
			})

			now := time.Now().UTC()
			ranked := s.Rerank([]recall.Item{
				{ID: "strong", Score: 0.9, Timestamp: now},
				{ID: "weak", Score: 0.2, Timestamp: now},
			})

			Expect(ranked).To(HaveLen(1))
			Expect(ranked[0].ID).To(Equal("strong"))
		})

		It("caps the result list at the configured maximum", func() {
			s := recall.NewStrategy(recall.Config{VectorWeight: 1, MaxResults: 3})

			now := time.Now().UTC()
			items := make([]recall.Item, 10)
			for i := range items {
				items[i] = recall.Item{ID: string(rune('a' + i)), Score: float64(i) / 10, Timestamp: now}
			}

			ranked := s.Rerank(items)

			Expect(ranked).To(HaveLen(3))
			Expect(ranked[0].ID).To(Equal("j"))
		})
	})

	Describe("RecordAccess", func() {
		It("accumulates counts across calls", func() {
			strategy.RecordAccess("doc-1")
			strategy.RecordAccess("doc-1")
			strategy.RecordAccess("doc-1")

			Expect(strategy.AccessCount("doc-1")).To(Equal(3))
			Expect(strategy.AccessCount("doc-2")).To(Equal(0))
		})
	})
})

var _ = Describe("HybridRecall", func() {
	It("fuses overlapping lists with normalized weights", func() {
		a := []recall.Item{{ID: "shared", Content: "x", Score: 0.8}}
		b := []recall.Item{{ID: "shared", Content: "x", Score: 0.4}}

		merged := recall.HybridRecall(a, b, 0.6, 0.4)

		Expect(merged).To(HaveLen(1))
		// 0.8*0.6 + 0.4*0.4 = 0.64
		Expect(merged[0].Score).To(BeNumerically("~", 0.64, 0.001))
	})

	It("keeps items unique to either list", func() {
		a := []recall.Item{{ID: "only-a", Score: 1.0}}
		b := []recall.Item{{ID: "only-b", Score: 1.0}}

		merged := recall.HybridRecall(a, b, 0.7, 0.3)

		Expect(merged).To(HaveLen(2))
		Expect(merged[0].ID).To(Equal("only-a"))
		Expect(merged[0].Score).To(BeNumerically("~", 0.7, 0.001))
		Expect(merged[1].Score).To(BeNumerically("~", 0.3, 0.001))
	})

	It("normalizes weights that do not sum to one", func() {
		a := []recall.Item{{ID: "doc", Score: 1.0}}

		merged := recall.HybridRecall(a, nil, 3, 1)

		Expect(merged[0].Score).To(BeNumerically("~", 0.75, 0.001))
	})
})

var _ = Describe("TimeWindowRecall", func() {
	It("drops items older than the window", func() {
		now := time.Now().UTC()
		items := []recall.Item{
			{ID: "recent", Timestamp: now.AddDate(0, 0, -2)},
			{ID: "ancient", Timestamp: now.AddDate(0, 0, -40)},
		}

		kept := recall.TimeWindowRecall(items, 7)

		Expect(kept).To(HaveLen(1))
		Expect(kept[0].ID).To(Equal("recent"))
	})

	It("returns nothing when everything is stale", func() {
		items := []recall.Item{
			{ID: "old", Timestamp: time.Now().UTC().AddDate(-1, 0, 0)},
		}

		Expect(recall.TimeWindowRecall(items, 30)).To(BeEmpty())
	})
})

package facts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/facts"
)

var _ = Describe("AtomicFact", func() {
	Describe("NewFact", func() {
		It("assigns an id, timestamp and full confidence", func() {
			fact := facts.NewFact("the user likes coffee", facts.CategoryUserPreference)

			Expect(fact.ID).NotTo(BeEmpty())
			Expect(fact.CreatedAt).NotTo(BeZero())
			Expect(fact.Confidence).To(Equal(1.0))
			Expect(fact.IsNegative).To(BeFalse())
		})

		It("applies confidence and source builders", func() {
			fact := facts.NewFact("the user works remotely", facts.CategoryWorkInfo).
				WithConfidence(0.8).
				WithSource("msg-42")

			Expect(fact.Confidence).To(Equal(0.8))
			Expect(fact.SourceMessageID).To(Equal("msg-42"))
		})
	})

	Describe("Contradicts", func() {
		It("detects a direct negation in the same category", func() {
			a := facts.NewFact("用户喜欢Python", facts.CategoryUserPreference)
			b := facts.NewFact("用户不喜欢Python", facts.CategoryUserPreference)

			Expect(a.Contradicts(b)).To(BeTrue())
		})

		It("is symmetric", func() {
			a := facts.NewFact("the user likes tea", facts.CategoryUserPreference)
			b := facts.NewFact("the user dislikes tea", facts.CategoryUserPreference)

			Expect(a.Contradicts(b)).To(BeTrue())
			Expect(b.Contradicts(a)).To(BeTrue())
		})

		It("never flags facts from different categories", func() {
			a := facts.NewFact("用户喜欢Python", facts.CategoryUserPreference)
			b := facts.NewFact("用户在Google工作", facts.CategoryWorkInfo)

			Expect(a.Contradicts(b)).To(BeFalse())
		})

		It("leaves unrelated same-category facts alone", func() {
			a := facts.NewFact("用户喜欢Python", facts.CategoryUserPreference)
			b := facts.NewFact("用户喜欢咖啡", facts.CategoryUserPreference)

			Expect(a.Contradicts(b)).To(BeFalse())
		})
	})
})

var _ = Describe("ParseCategory", func() {
	It("accepts every known category", func() {
		Expect(facts.ParseCategory("user_preference")).To(Equal(facts.CategoryUserPreference))
		Expect(facts.ParseCategory("Decision")).To(Equal(facts.CategoryDecision))
		Expect(facts.ParseCategory(" feedback ")).To(Equal(facts.CategoryFeedback))
	})

	It("maps unknown strings to other", func() {
		Expect(facts.ParseCategory("made_up_category")).To(Equal(facts.CategoryOther))
		Expect(facts.ParseCategory("")).To(Equal(facts.CategoryOther))
	})
})

var _ = Describe("ClassifyText", func() {
	It("recognizes preferences in both languages", func() {
		Expect(facts.ClassifyText("用户说他喜欢Python")).To(Equal(facts.CategoryUserPreference))
		Expect(facts.ClassifyText("my favorite editor is vim")).To(Equal(facts.CategoryUserPreference))
	})

	It("recognizes work and goals", func() {
		Expect(facts.ClassifyText("我在Google工作")).To(Equal(facts.CategoryWorkInfo))
		Expect(facts.ClassifyText("我想学习Rust")).To(Equal(facts.CategoryUserGoal))
	})

	It("falls back to other", func() {
		Expect(facts.ClassifyText("xyzzy")).To(Equal(facts.CategoryOther))
	})
})

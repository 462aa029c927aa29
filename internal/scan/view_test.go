package scan

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("GroupByPeriod", func() {
	var (
		records []ScanRecord
		groups  []PeriodGroup
	)

	JustBeforeEach(func() {
		groups = GroupByPeriod(records)
	})

	When("there are no records", func() {
		BeforeEach(func() {
			records = nil
		})

		It("should return no groups", func() {
			Expect(groups).NotTo(BeNil())
			Expect(groups).To(BeEmpty())
		})
	})

	When("records span two months", func() {
		BeforeEach(func() {
			records = []ScanRecord{
				testRecord("1", "Armyworm", "2024-05-01"),
				testRecord("2", "Cutworm", "2024-06-03"),
				testRecord("3", "Armyworm", "2024-05-20"),
			}
		})

		It("should put the most recent month first", func() {
			Expect(groups).To(HaveLen(2))
			Expect(groups[0].Label).To(Equal("June 2024"))
			Expect(groups[1].Label).To(Equal("May 2024"))
		})

		It("should keep insertion order within a group", func() {
			Expect(recordIDs(groups[0].Scans)).To(Equal([]string{"2"}))
			Expect(recordIDs(groups[1].Scans)).To(Equal([]string{"1", "3"}))
		})

		It("should carry the first day of the month", func() {
			Expect(groups[0].Period).To(Equal(time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)))
		})
	})

	When("months span years", func() {
		BeforeEach(func() {
			records = []ScanRecord{
				testRecord("1", "Armyworm", "2023-12-31"),
				testRecord("2", "Cutworm", "2024-01-01"),
				testRecord("3", "Armyworm", "2023-02-14"),
				testRecord("4", "Armyworm", "2024-11-05"),
			}
		})

		It("should order by date value, not by label", func() {
			labels := make([]string, 0, len(groups))
			for _, g := range groups {
				labels = append(labels, g.Label)
			}
			Expect(labels).To(Equal([]string{"November 2024", "January 2024", "December 2023", "February 2023"}))
		})
	})

	When("some dates cannot be parsed", func() {
		BeforeEach(func() {
			records = []ScanRecord{
				testRecord("1", "Armyworm", "yesterday"),
				testRecord("2", "Cutworm", "2024-06-03"),
				testRecord("3", "Armyworm", ""),
				testRecord("4", "Cutworm", "2024-06-03T10:00:00Z"),
			}
		})

		It("should group them last under Unknown", func() {
			Expect(groups).To(HaveLen(2))
			Expect(groups[0].Label).To(Equal("June 2024"))
			Expect(recordIDs(groups[0].Scans)).To(Equal([]string{"2", "4"}))
			Expect(groups[1].Label).To(Equal(UnknownPeriodLabel))
			Expect(recordIDs(groups[1].Scans)).To(Equal([]string{"1", "3"}))
		})
	})

	It("should partition every record exactly once", func() {
		input := []ScanRecord{
			testRecord("a", "Armyworm", "2024-01-09"),
			testRecord("b", "Cutworm", "2024-03-09"),
			testRecord("c", "Armyworm", "2024-01-10"),
			testRecord("d", "Red Spider Mites", "2022-07-01"),
			testRecord("e", "Cutworm", "bad"),
		}

		var seen []string
		for _, g := range GroupByPeriod(input) {
			Expect(g.Scans).NotTo(BeEmpty())
			seen = append(seen, recordIDs(g.Scans)...)
		}
		Expect(seen).To(ConsistOf("a", "b", "c", "d", "e"))
	})
})

var _ = Describe("PeriodLabel", func() {
	It("should spell out month and year", func() {
		Expect(PeriodLabel(time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC))).To(Equal("June 2024"))
	})
})

var _ = Describe("Search", func() {
	var records []ScanRecord

	BeforeEach(func() {
		records = []ScanRecord{
			testRecord("1", "Armyworm", "2024-05-01"),
			testRecord("2", "Cutworm", "2024-05-02"),
			testRecord("3", "Red Spider Mites", "2024-05-03"),
			testRecord("4", "ARMYWORM", "2024-05-04"),
		}
	})

	It("should return the input unchanged for an empty query", func() {
		Expect(Search(records, "")).To(Equal(records))
	})

	It("should match case-insensitively", func() {
		Expect(recordIDs(Search(records, "armyworm"))).To(Equal([]string{"1", "4"}))
	})

	It("should match substrings", func() {
		Expect(recordIDs(Search(records, "spider"))).To(Equal([]string{"3"}))
		Expect(recordIDs(Search(records, "worm"))).To(Equal([]string{"1", "2", "4"}))
	})

	It("should return nothing when no result matches", func() {
		matches := Search(records, "aphid")
		Expect(matches).NotTo(BeNil())
		Expect(matches).To(BeEmpty())
	})

	It("should not match on other fields", func() {
		Expect(Search(records, "2024")).To(BeEmpty())
	})
})

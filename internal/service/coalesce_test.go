package service_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fleetsight/pulse/internal/model"
	"github.com/fleetsight/pulse/internal/service"
)

var _ = Describe("CoalesceBatch", func() {
	var now time.Time

	BeforeEach(func() {
		now = time.Now().UTC()
	})

	It("passes through a batch with distinct ids", func() {
		winners, deduped := service.CoalesceBatch([]*model.MachineEvent{
			newEvent("A", now, 1, 100),
			newEvent("B", now, 2, 100),
			newEvent("C", now, 3, 100),
		})

		Expect(winners).To(HaveLen(3))
		Expect(deduped).To(BeZero())
	})

	It("returns nothing for an empty batch", func() {
		winners, deduped := service.CoalesceBatch(nil)

		Expect(winners).To(BeEmpty())
		Expect(deduped).To(BeZero())
	})

	It("keeps the delivery with the latest received time regardless of input order", func() {
		winners, deduped := service.CoalesceBatch([]*model.MachineEvent{
			newEvent("A", now, 1, 100),
			newEvent("A", now.Add(-10*time.Second), 2, 100),
			newEvent("A", now.Add(-5*time.Second), 3, 100),
		})

		Expect(winners).To(HaveLen(1))
		Expect(winners[0].DefectCount).To(Equal(1))
		Expect(deduped).To(Equal(2))
	})

	It("breaks received-time ties toward the later arrival", func() {
		winners, deduped := service.CoalesceBatch([]*model.MachineEvent{
			newEvent("A", now, 1, 100),
			newEvent("A", now, 2, 100),
		})

		Expect(winners).To(HaveLen(1))
		Expect(winners[0].DefectCount).To(Equal(2))
		Expect(deduped).To(Equal(1))
	})

	It("counts every non-winner across multiple ids", func() {
		winners, deduped := service.CoalesceBatch([]*model.MachineEvent{
			newEvent("A", now, 1, 100),
			newEvent("A", now.Add(time.Second), 2, 100),
			newEvent("B", now, 3, 100),
			newEvent("B", now.Add(time.Second), 4, 100),
			newEvent("B", now.Add(2*time.Second), 5, 100),
		})

		Expect(winners).To(HaveLen(2))
		Expect(deduped).To(Equal(3))
	})
})

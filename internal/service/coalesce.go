package service

import "github.com/fleetsight/pulse/internal/model"

// CoalesceBatch reduces the candidates to at most one winner per event ID:
// the candidate with the latest ReceivedTime, ties going to the one seen
// later in input order. Every non-winner counts toward the returned dedupe
// total. The winner slice carries no ordering guarantee.
func CoalesceBatch(events []*model.MachineEvent) ([]*model.MachineEvent, int) {
	winners := make(map[string]*model.MachineEvent, len(events))
	deduped := 0

	for _, ev := range events {
		current, ok := winners[ev.EventID]
		if !ok {
			winners[ev.EventID] = ev
			continue
		}
		deduped++
		if !ev.ReceivedTime.Before(current.ReceivedTime) {
			winners[ev.EventID] = ev
		}
	}

	result := make([]*model.MachineEvent, 0, len(winners))
	for _, ev := range winners {
		result = append(result, ev)
	}
	return result, deduped
}

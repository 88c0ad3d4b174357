package factory

import (
	"github.com/smallbiznis/analytics/internal/analytics/domain"
)

// OverdueStatuses turns the most-recent-first blocking history into status periods. The history is
// walked as one chronological sequence regardless of the blocked object: a period ends where the
// next state starts and only the latest period stays open.
func OverdueStatuses(src Sources) []domain.BusinessOverdueStatus {
	history := chronological(src.Blocking)
	rows := make([]domain.BusinessOverdueStatus, 0, len(history))
	for i, state := range history {
		row := domain.BusinessOverdueStatus{
			FactBase:              src.base(src.Account.ID, state.EffectiveDate),
			BlockingStateRecordID: state.RecordID,
			ObjectID:              state.BlockedID.String(),
			ObjectType:            state.BlockedType,
			Service:               state.Service,
			Status:                state.State,
			StartDate:             state.EffectiveDate.UTC(),
		}
		if i+1 < len(history) {
			row.EndDate = timePtr(history[i+1].EffectiveDate)
		}
		rows = append(rows, row)
	}
	return rows
}

func chronological(history []domain.BlockingState) []domain.BlockingState {
	out := make([]domain.BlockingState, len(history))
	for i, state := range history {
		out[len(history)-1-i] = state
	}
	return out
}

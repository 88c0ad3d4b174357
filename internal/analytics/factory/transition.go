package factory

import (
	"sort"
	"strings"
	"time"

	"github.com/smallbiznis/analytics/internal/analytics/domain"
)

// SubscriptionTransitions walks each subscription's events in effective order and emits one row per event.
func SubscriptionTransitions(src Sources) []domain.BusinessSubscriptionTransition {
	var rows []domain.BusinessSubscriptionTransition

	for _, bundle := range src.Bundles {
		for _, sub := range bundle.Subscriptions {
			events := make([]domain.SubscriptionEvent, len(sub.Events))
			copy(events, sub.Events)
			sort.SliceStable(events, func(i, j int) bool {
				return events[i].EffectiveDate.Before(events[j].EffectiveDate)
			})

			for i, event := range events {
				row := domain.BusinessSubscriptionTransition{
					FactBase:                  src.base(event.ID, event.EffectiveDate),
					SubscriptionEventRecordID: event.RecordID,
					BundleID:                  bundle.ID.String(),
					BundleExternalKey:         bundle.ExternalKey,
					SubscriptionID:            sub.ID.String(),
					Category:                  sub.Category,
					Event:                     eventName(event.EventType, sub.Category),
					NextPlan:                  event.NextPlan,
					NextPhase:                 event.NextPhase,
					NextPrice:                 event.NextPrice,
					NextState:                 event.NextState,
					NextStartDate:             event.EffectiveDate.UTC(),
					Currency:                  event.Currency,
				}
				if i > 0 {
					prev := events[i-1]
					row.PrevPlan = prev.NextPlan
					row.PrevPhase = prev.NextPhase
					row.PrevPrice = prev.NextPrice
					row.PrevState = prev.NextState
					row.PrevStartDate = timePtr(prev.EffectiveDate)
				}
				if i+1 < len(events) {
					row.NextEndDate = timePtr(events[i+1].EffectiveDate)
				}
				rows = append(rows, row)
			}
		}
	}

	return rows
}

func eventName(eventType string, category domain.ProductCategory) string {
	eventType = strings.ToUpper(strings.TrimSpace(eventType))
	if category == "" {
		return eventType
	}
	return eventType + "_" + string(category)
}

// BundleSummaries reduces transitions to one row per bundle holding its latest base-plan transition.
// Bundles without any base transition produce no row.
func BundleSummaries(transitions []domain.BusinessSubscriptionTransition) []domain.BusinessBundleSummary {
	var order []string
	byBundle := make(map[string][]domain.BusinessSubscriptionTransition)

	for _, transition := range transitions {
		if _, seen := byBundle[transition.BundleID]; !seen {
			order = append(order, transition.BundleID)
			byBundle[transition.BundleID] = nil
		}
		if transition.Category != domain.ProductCategoryBase {
			continue
		}
		byBundle[transition.BundleID] = append(byBundle[transition.BundleID], transition)
	}

	var rows []domain.BusinessBundleSummary
	for _, bundleID := range order {
		base := byBundle[bundleID]
		if len(base) == 0 {
			continue
		}
		sort.SliceStable(base, func(i, j int) bool {
			return base[i].NextStartDate.Before(base[j].NextStartDate)
		})

		last := base[len(base)-1]
		var previousStart *time.Time
		if len(base) > 1 {
			previousStart = timePtr(base[len(base)-2].NextStartDate)
		}

		rows = append(rows, domain.BusinessBundleSummary{
			FactBase:                  last.FactBase,
			BundleID:                  last.BundleID,
			BundleExternalKey:         last.BundleExternalKey,
			SubscriptionID:            last.SubscriptionID,
			BundleAccountRank:         len(rows) + 1,
			SubscriptionEventRecordID: last.SubscriptionEventRecordID,
			CurrentPlan:               last.NextPlan,
			CurrentPhase:              last.NextPhase,
			CurrentPrice:              last.NextPrice,
			CurrentState:              last.NextState,
			Currency:                  last.Currency,
			PreviousStartDate:         previousStart,
			NextStartDate:             last.NextStartDate,
			NextEndDate:               last.NextEndDate,
		})
	}

	return rows
}

// CountActiveBundles counts summaries whose latest base transition is not cancelled.
func CountActiveBundles(summaries []domain.BusinessBundleSummary) int {
	count := 0
	for _, summary := range summaries {
		if summary.Active() {
			count++
		}
	}
	return count
}

package billing

import "choreking/internal/models"

// Plan prices in euro cents. The billing provider is the source of truth for
// charges; this table only backs the admin revenue overview.
var planPrices = map[string]map[string]int{
	models.PlanStarter: {
		models.IntervalMonthly: 499,
		models.IntervalYearly:  4990,
	},
	models.PlanPremium: {
		models.IntervalMonthly: 799,
		models.IntervalYearly:  7990,
	},
}

// PlanPrice returns the price in cents for a plan and billing interval
func PlanPrice(plan, interval string) (int, bool) {
	intervals, ok := planPrices[plan]
	if !ok {
		return 0, false
	}
	price, ok := intervals[interval]
	return price, ok
}

// MonthlyValue normalises a plan price to a per-month figure in cents, so
// monthly and yearly subscribers can be summed into one recurring-revenue
// number.
func MonthlyValue(plan, interval string) int {
	price, ok := PlanPrice(plan, interval)
	if !ok {
		return 0
	}
	if interval == models.IntervalYearly {
		return price / 12
	}
	return price
}

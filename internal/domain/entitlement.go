package domain

// Entitled sums key allotments over completed orders, given as a count per plan type.
func Entitled(completedByPlan map[PlanType]int) int {
	total := 0
	for planType, n := range completedByPlan {
		total += n * KeyCountFor(planType)
	}
	return total
}

// Available is entitled minus already provisioned keys. It may be negative
// when keys were created beyond entitlement; use ClampAvailable for display.
func Available(entitled, keyCount int) int {
	return entitled - keyCount
}

// ClampAvailable floors n at zero.
func ClampAvailable(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

package models

// Streak thresholds unlocking the three badges.
var BadgeThresholds = []int{5, 10, 20}

// Badges returns which badges a streak has earned, in threshold order.
func Badges(streak int) []bool {
	earned := make([]bool, len(BadgeThresholds))
	for i, threshold := range BadgeThresholds {
		earned[i] = streak >= threshold
	}
	return earned
}

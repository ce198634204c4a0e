package domain

// PayFrequency is how often an employee is paid
type PayFrequency string

const (
	Weekly      PayFrequency = "weekly"
	BiWeekly    PayFrequency = "bi_weekly"
	SemiMonthly PayFrequency = "semi_monthly"
	Monthly     PayFrequency = "monthly"
)

// periodsPerYear maps each frequency to its number of pay periods
var periodsPerYear = map[PayFrequency]int{
	Weekly:      52,
	BiWeekly:    26,
	SemiMonthly: 24,
	Monthly:     12,
}

// PeriodsPerYear returns the number of pay periods in a year for the
// frequency. Unmapped frequencies default to 24 (semi-monthly).
func (f PayFrequency) PeriodsPerYear() int {
	if n, ok := periodsPerYear[f]; ok {
		return n
	}
	return 24
}

// Valid reports whether the frequency is one of the known values
func (f PayFrequency) Valid() bool {
	_, ok := periodsPerYear[f]
	return ok
}

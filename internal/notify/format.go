package notify

import "fmt"

// FormatLead renders a reminder offset as human-readable lead time.
// One canonical rule everywhere: sub-hour offsets stay in minutes, exact
// weeks/days/hours collapse to the largest unit, everything else becomes
// "H hour(s) M minute(s)".
func FormatLead(minutes int) string {
	switch {
	case minutes < 60:
		return plural(minutes, "minute")
	case minutes%10080 == 0:
		return plural(minutes/10080, "week")
	case minutes%1440 == 0:
		return plural(minutes/1440, "day")
	case minutes%60 == 0:
		return plural(minutes/60, "hour")
	default:
		return plural(minutes/60, "hour") + " " + plural(minutes%60, "minute")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

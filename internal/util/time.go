package util

import "time"

// KST is fixed at UTC+9; tzdata is not required.
var KST = time.FixedZone("KST", 9*60*60)

// FormatKST renders t in Korean time. Zero times render as "-".
func FormatKST(t time.Time, layout string) string {
	if t.IsZero() {
		return "-"
	}
	return t.In(KST).Format(layout)
}

package converter

import "time"

// dateLayout is the calendar date layout accepted by the "date" format
const dateLayout = "2006-01-02"

// IsDate reports whether value is a valid full calendar date (YYYY-MM-DD)
func IsDate(value string) bool {
	if len(value) != len(dateLayout) {
		return false
	}
	_, err := time.Parse(dateLayout, value)
	return err == nil
}

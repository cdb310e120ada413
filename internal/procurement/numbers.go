package procurement

import (
	"fmt"
	"time"
)

const maxDailySequence = 9999

// FormatPONumber renders a purchase order number as PO-YYYYMMDD-NNNN. The
// sequence restarts at 1 each day and is capped at four digits.
func FormatPONumber(date time.Time, seq int) (string, error) {
	if seq < 1 || seq > maxDailySequence {
		return "", errValidation("order sequence %d out of range for %s", seq, date.Format("2006-01-02"))
	}
	return fmt.Sprintf("PO-%s-%04d", date.Format("20060102"), seq), nil
}

// NextPONumber returns the number following the highest sequence already
// issued for the date.
func NextPONumber(date time.Time, maxSeq int) (string, error) {
	return FormatPONumber(date, maxSeq+1)
}

package leads

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"neuralflow/internal/domain"
)

var csvHeader = []string{"Email", "Type", "Status", "Referral Code", "Referrals", "Date"}

// WriteCSV writes leads as comma-separated rows under a header line.
// Dates are ISO-8601 in UTC.
func WriteCSV(w io.Writer, leads []domain.Lead) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, l := range leads {
		row := []string{
			l.Email,
			string(l.Type),
			string(l.Status),
			l.ReferralCode,
			strconv.Itoa(l.ReferralCount),
			l.Timestamp.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %s: %w", l.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// CSVFileName is the suggested download name for an export made at now.
func CSVFileName(now time.Time) string {
	return "neuralflow-leads-" + now.Format("2006-01-02") + ".csv"
}

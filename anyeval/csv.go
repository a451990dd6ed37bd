package anyeval

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/unixpickle/essentials"
)

// WriteCSV writes transcript rows with the header
// "target,prediction,cer".
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	records := [][]string{{"target", "prediction", "cer"}}
	for _, r := range rows {
		records = append(records, []string{r.Target, r.Prediction, formatFloat(r.CER)})
	}
	if err := cw.WriteAll(records); err != nil {
		return essentials.AddCtx("write transcripts", err)
	}
	return nil
}

// WriteEpochCSV writes one row per epoch with the header
// "loss,cer".
func WriteEpochCSV(w io.Writer, points []EpochPoint) error {
	cw := csv.NewWriter(w)
	records := [][]string{{"loss", "cer"}}
	for _, p := range points {
		records = append(records, []string{formatFloat(p.Loss), formatFloat(p.CER)})
	}
	if err := cw.WriteAll(records); err != nil {
		return essentials.AddCtx("write epoch results", err)
	}
	return nil
}

func formatFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}

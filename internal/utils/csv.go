package utils

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"cryptoInsight/internal/indicators"
)

// CSVHeader is the column layout written by WriteFrameCSV.
var CSVHeader = []string{"date", "open", "high", "low", "close", "volume", "sma_7", "sma_20", "rsi_14"}

// WriteFrameCSV writes bars and their indicators as CSV. Undefined
// indicator values are written as empty cells.
func WriteFrameCSV(frame *indicators.Frame, w io.Writer) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(CSVHeader); err != nil {
		return err
	}

	for i, b := range frame.Bars.Bars {
		err := writer.Write([]string{
			b.Date.Format("2006-01-02"),
			formatFloat(b.Open),
			formatFloat(b.High),
			formatFloat(b.Low),
			formatFloat(b.Close),
			formatFloat(b.Volume),
			formatFloat(frame.SMA7[i]),
			formatFloat(frame.SMA20[i]),
			formatFloat(frame.RSI14[i]),
		})
		if err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteFrameToFile writes the frame to filename, creating parent directories.
func WriteFrameToFile(frame *indicators.Frame, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return WriteFrameCSV(frame, file)
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"sprintreport/internal/domain"
)

var Header = []string{"Epic", "Not Started", "Started", "Done"}

// WriteCSV writes the header and one (label, not started, started, done) row
// per report row.
func WriteCSV(w io.Writer, rows []domain.ReportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			row.Label,
			FormatPoints(row.NotStarted),
			FormatPoints(row.Started),
			FormatPoints(row.Done),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the report to outputDir and returns the file path.
func WriteCSVFile(rows []domain.ReportRow, outputDir, teamName string, sprint domain.Sprint, choice string, reportDate time.Time) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(outputDir, FileName(teamName, sprint, choice, reportDate))

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := WriteCSV(f, rows); err != nil {
		f.Close()
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, f.Close()
}

func FileName(teamName string, sprint domain.Sprint, choice string, reportDate time.Time) string {
	return fmt.Sprintf("%s_sprint-%d_%s_%s.csv",
		sanitizeFilename(teamName), sprint.ID, sanitizeFilename(choice), reportDate.Format("20060102"))
}

func sanitizeFilename(s string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_", " ", "_")
	cleaned := strings.TrimLeft(replacer.Replace(strings.TrimSpace(s)), ".")
	if cleaned == "" {
		return "report"
	}
	return cleaned
}

func FormatPoints(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// RenderText renders the rows as a fixed-width table under a title line.
func RenderText(title string, rows []domain.ReportRow) string {
	labelWidth := len(Header[0])
	for _, row := range rows {
		if len(row.Label) > labelWidth {
			labelWidth = len(row.Label)
		}
	}

	var b strings.Builder
	if title != "" {
		b.WriteString(title)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "%-*s  %11s  %7s  %4s\n", labelWidth, Header[0], Header[1], Header[2], Header[3])
	if len(rows) == 0 {
		b.WriteString("(no story points in this sprint)\n")
		return b.String()
	}
	for _, row := range rows {
		fmt.Fprintf(&b, "%-*s  %11s  %7s  %4s\n", labelWidth, row.Label,
			FormatPoints(row.NotStarted), FormatPoints(row.Started), FormatPoints(row.Done))
	}
	return b.String()
}

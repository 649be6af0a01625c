package utils

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/lottoml/lotto-engine/internal/models"
)

var (
	drawColumns    = []string{"회차", "회", "draw", "draw_no", "drawno", "round"}
	dateColumns    = []string{"날짜", "추첨일", "date", "draw_date", "drawdate"}
	numbersColumns = []string{"당첨번호", "번호", "numbers", "winning_numbers"}
	bonusColumns   = []string{"보너스", "보너스번호", "bonus", "bonus_number"}
)

// DrawImport is the outcome of parsing a draw CSV. Rows that fail to parse
// are reported in Errors and left out of Draws.
type DrawImport struct {
	Draws     []models.Draw `json:"-"`
	TotalRows int           `json:"total_rows"`
	Skipped   int           `json:"skipped"`
	Errors    []string      `json:"errors"`
}

type drawLayout struct {
	draw, date, bonus int
	numbers           []int
	joined            int
}

// ParseDrawsCSV reads draw history from a CSV export. Headers are matched
// case-insensitively against Korean and English aliases. Numbers may be in
// six columns or one space/comma separated column. Without recognisable
// headers the columns are taken positionally: draw, date, six numbers, bonus.
func ParseDrawsCSV(r io.Reader) (*DrawImport, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("csv is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	layout, err := detectLayout(header)
	if err != nil {
		return nil, err
	}

	result := &DrawImport{Errors: []string{}}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		result.TotalRows++
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", result.TotalRows, err))
			continue
		}
		if strings.TrimSpace(cell(row, layout.draw)) == "" {
			result.Skipped++
			continue
		}
		d, err := layout.parse(row)
		if err == nil {
			err = d.Validate()
		}
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", result.TotalRows, err))
			continue
		}
		result.Draws = append(result.Draws, d.Normalized())
	}
	return result, nil
}

func detectLayout(header []string) (drawLayout, error) {
	l := drawLayout{
		draw:   findColumnIndex(header, drawColumns),
		date:   findColumnIndex(header, dateColumns),
		bonus:  findColumnIndex(header, bonusColumns),
		joined: -1,
	}
	for i := 1; i <= models.NumbersPerDraw; i++ {
		idx := findColumnIndex(header, []string{
			fmt.Sprintf("번호%d", i), fmt.Sprintf("num%d", i), fmt.Sprintf("n%d", i),
			fmt.Sprintf("number%d", i), fmt.Sprintf("no%d", i), fmt.Sprintf("drwtNo%d", i),
		})
		if idx == -1 {
			l.numbers = nil
			break
		}
		l.numbers = append(l.numbers, idx)
	}
	if l.numbers == nil {
		l.joined = findColumnIndex(header, numbersColumns)
	}

	// Positional fallback for exports without usable headers
	if l.draw == -1 {
		l.draw = 0
	}
	if l.date == -1 && len(header) > 1 {
		l.date = 1
	}
	if l.numbers == nil && l.joined == -1 {
		if len(header) < 2+models.NumbersPerDraw {
			return l, fmt.Errorf("number columns not found in CSV")
		}
		for i := 0; i < models.NumbersPerDraw; i++ {
			l.numbers = append(l.numbers, 2+i)
		}
	}
	if l.bonus == -1 && len(header) > 2+models.NumbersPerDraw && l.joined == -1 {
		l.bonus = 2 + models.NumbersPerDraw
	}
	if l.date == -1 {
		return l, fmt.Errorf("date column not found in CSV")
	}
	if l.bonus == -1 {
		return l, fmt.Errorf("bonus column not found in CSV")
	}
	return l, nil
}

func (l drawLayout) parse(row []string) (models.Draw, error) {
	var d models.Draw
	no, err := parseInt(cell(row, l.draw))
	if err != nil {
		return d, fmt.Errorf("invalid draw number %q", cell(row, l.draw))
	}
	d.DrawNo = no

	date, err := parseDate(cell(row, l.date))
	if err != nil {
		return d, err
	}
	d.DrawDate = date.Format(models.DateLayout)

	var raw []string
	if l.joined != -1 {
		raw = strings.FieldsFunc(cell(row, l.joined), func(r rune) bool {
			return r == ',' || r == ' ' || r == '-' || r == '/'
		})
	} else {
		for _, idx := range l.numbers {
			raw = append(raw, cell(row, idx))
		}
	}
	for _, s := range raw {
		n, err := parseInt(s)
		if err != nil {
			return d, fmt.Errorf("invalid number %q", s)
		}
		d.Numbers = append(d.Numbers, n)
	}

	bonus, err := parseInt(cell(row, l.bonus))
	if err != nil {
		return d, fmt.Errorf("invalid bonus %q", cell(row, l.bonus))
	}
	d.Bonus = bonus
	return d, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// parseInt accepts plain integers and spreadsheet floats such as "1205.0"
func parseInt(s string) (int, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	return int(f), nil
}

// findColumnIndex finds the index of a column in the header
func findColumnIndex(header []string, possibleNames []string) int {
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		for _, name := range possibleNames {
			if strings.ToLower(name) == h {
				return i
			}
		}
	}
	return -1
}

// parseDate parses a date string in various formats
func parseDate(dateStr string) (time.Time, error) {
	dateStr = strings.TrimSpace(dateStr)
	dateStr = strings.TrimSuffix(dateStr, ".")

	formats := []string{
		"2006-01-02",
		"2006.01.02",
		"2006/01/02",
		"20060102",
		"2006년 01월 02일",
		"2006년 1월 2일",
		"01/02/2006",
		"Jan 2, 2006",
		"2 Jan 2006",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05Z07:00",
	}

	for _, format := range formats {
		date, err := time.Parse(format, dateStr)
		if err == nil {
			return date, nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date: %s", dateStr)
}

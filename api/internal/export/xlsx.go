package export

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/radhikaramasamy/snipreader/api/internal/question"
)

const (
	maxSheetName   = 31
	minOptionCols  = 4
	XLSXMIME       = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	highlightColor = "#C6EFCE"
)

// XLSX builds a workbook with one sheet per set.
// Колонки: #, Type, Question, A..(не меньше D), Answer, Explanation.
func XLSX(sets ...question.Set) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	first := f.GetSheetName(0)
	if len(sets) == 0 {
		if err := f.SetSheetName(first, "Questions"); err != nil {
			return nil, err
		}
	}

	highlight, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{highlightColor}},
	})
	if err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	used := map[string]bool{}
	for i, set := range sets {
		name := sheetName(i, set.Title, used)
		if i == 0 {
			if err := f.SetSheetName(first, name); err != nil {
				return nil, err
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
		if err := writeSheet(f, name, set, bold, highlight); err != nil {
			return nil, fmt.Errorf("sheet %q: %w", name, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return bytes.Clone(buf.Bytes()), nil
}

func writeSheet(f *excelize.File, sheet string, set question.Set, bold, highlight int) error {
	optCols := minOptionCols
	for _, q := range set.Questions {
		optCols = max(optCols, len(q.Options))
	}

	header := []interface{}{"#", "Type", "Question"}
	for j := 0; j < optCols; j++ {
		header = append(header, question.Label(j))
	}
	header = append(header, "Answer", "Explanation")
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return err
	}

	for i, q := range set.Questions {
		rowIdx := i + 2
		row := []interface{}{i + 1, q.Kind.String(), q.Text}
		for j := 0; j < optCols; j++ {
			if j < len(q.Options) {
				row = append(row, q.Options[j])
			} else {
				row = append(row, "")
			}
		}
		row = append(row, q.Answer, q.Explanation)
		cell, _ := excelize.CoordinatesToCellName(1, rowIdx)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
		for j := range q.Options {
			if !q.Highlighted(j) {
				continue
			}
			c, _ := excelize.CoordinatesToCellName(4+j, rowIdx)
			if err := f.SetCellStyle(sheet, c, c, highlight); err != nil {
				return err
			}
		}
	}
	return f.SetColWidth(sheet, "C", "C", 60)
}

var sheetNameReplacer = strings.NewReplacer("[", " ", "]", " ", ":", " ", "*", " ", "?", " ", "/", " ", `\`, " ", "'", "")

// sheetName делает из заголовка допустимое и уникальное имя листа.
func sheetName(i int, title string, used map[string]bool) string {
	name := strings.Join(strings.Fields(sheetNameReplacer.Replace(title)), " ")
	if name == "" {
		name = "Set"
	}
	prefix := strconv.Itoa(i+1) + " "
	name = prefix + name
	for utf8.RuneCountInString(name) > maxSheetName {
		_, size := utf8.DecodeLastRuneInString(name)
		name = strings.TrimSpace(name[:len(name)-size])
	}
	key := strings.ToLower(name)
	for n := 2; used[key]; n++ {
		name = fmt.Sprintf("%d-%d", i+1, n)
		key = strings.ToLower(name)
	}
	used[key] = true
	return name
}

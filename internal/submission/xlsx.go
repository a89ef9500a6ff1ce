package submission

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/report-qa/internal/model"
)

var xlsxHeader = []string{"question", "value", "pdf_sha1", "page_index"}

// ExportXLSX writes sub as a review spreadsheet with one row per record.
func ExportXLSX(path string, sub model.Submission) error {
	f := xlsx.NewFile()
	name := sub.SubmissionName
	if name == "" {
		name = "answers"
	}
	sheet, err := f.AddSheet(sheetName(name))
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range xlsxHeader {
		header.AddCell().SetString(h)
	}

	for _, a := range sub.Answers {
		row := sheet.AddRow()
		row.AddCell().SetString(a.QuestionText)
		setValueCell(row.AddCell(), a.Value)

		var shas, pages []string
		for _, r := range a.References {
			shas = append(shas, r.PDFSHA1)
			pages = append(pages, strconv.Itoa(r.PageIndex))
		}
		row.AddCell().SetString(strings.Join(shas, ", "))
		row.AddCell().SetString(strings.Join(pages, ", "))
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "xlsx: save %s", path)
	}
	return nil
}

func setValueCell(c *xlsx.Cell, v any) {
	switch t := v.(type) {
	case float64:
		c.SetFloat(t)
	case bool:
		c.SetBool(t)
	case string:
		c.SetString(t)
	default:
		c.SetValue(t)
	}
}

// sheetName trims a name to the 31 characters a sheet title allows and
// drops the characters xlsx forbids.
func sheetName(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, s)
	if r := []rune(s); len(r) > 31 {
		s = string(r[:31])
	}
	return s
}

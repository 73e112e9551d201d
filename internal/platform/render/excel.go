package render

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/dsr/dsr/internal/domain/survey"
)

const sheetName = "Drug Record"

// exportRows flattens a record into label/value pairs, header row first.
func exportRows(rec *survey.DrugRecord) [][2]string {
	address := fmt.Sprintf("%s ต.%s อ.%s จ.%s",
		strVal(rec.HouseNo), strVal(rec.Tambon), strVal(rec.Amphoe), strVal(rec.Province))

	usedDrugs := "ไม่เคย"
	if rec.HasUsedDrugs {
		usedDrugs = "เคย"
	}

	age := ""
	if rec.Age != nil {
		age = fmt.Sprintf("%d", *rec.Age)
	}

	return [][2]string{
		{"หัวข้อ", "ข้อมูล"},
		{"เลขที่บันทึก", rec.RecordNumber},
		{"ชื่อ-สกุล", rec.FirstName + " " + rec.LastName},
		{"เลขบัตรประชาชน", rec.IDCard},
		{"อายุ", age},
		{"ที่อยู่", address},
		{"ประวัติการใช้ยา", usedDrugs},
		{"ประเภทยา", strings.Join(rec.DrugTypes, ", ")},
		{"เหตุผล", strings.Join(rec.Reasons, ", ")},
	}
}

func strVal(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func (s *Service) writeExcel(rec *survey.DrugRecord, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}
	if err := f.SetColWidth(sheetName, "A", "A", 20); err != nil {
		return err
	}
	if err := f.SetColWidth(sheetName, "B", "B", 30); err != nil {
		return err
	}

	rows := exportRows(rec)
	for i, row := range rows {
		cellA, _ := excelize.CoordinatesToCellName(1, i+1)
		cellB, _ := excelize.CoordinatesToCellName(2, i+1)
		if err := f.SetCellValue(sheetName, cellA, row[0]); err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cellB, row[1]); err != nil {
			return err
		}
	}

	thin := []excelize.Border{
		{Type: "top", Color: "000000", Style: 1},
		{Type: "left", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
	}
	body, err := f.NewStyle(&excelize.Style{
		Border:    thin,
		Alignment: &excelize.Alignment{Vertical: "center", Horizontal: "left"},
	})
	if err != nil {
		return err
	}
	header, err := f.NewStyle(&excelize.Style{
		Border:    thin,
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Vertical: "center", Horizontal: "left"},
	})
	if err != nil {
		return err
	}

	last := fmt.Sprintf("B%d", len(rows))
	if err := f.SetCellStyle(sheetName, "A1", last, body); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", "B1", header); err != nil {
		return err
	}

	return f.SaveAs(path)
}

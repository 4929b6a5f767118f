// Package export writes member lists as spreadsheets.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"shollu-partner/internal/shollu"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const SheetName = "Anggota"

type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatXLSX, "":
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

var header = []string{"No", "Nama Lengkap", "QR Code", "Telepon", "Jenis Kelamin", "Tanggal Lahir", "Total Absen", "Absen Terakhir", "Terdaftar"}

func row(i int, m shollu.Member) []string {
	return []string{
		strconv.Itoa(i + 1),
		m.Name,
		m.QRCode,
		m.Phone,
		GenderLabel(m.Gender),
		m.BirthDate,
		strconv.Itoa(m.TotalAttendance),
		m.LastAttendance,
		m.RegisteredAt,
	}
}

// GenderLabel spells out the L/P gender code.
func GenderLabel(code string) string {
	switch code {
	case "L":
		return "Laki-laki"
	case "P":
		return "Perempuan"
	}
	return code
}

// Write renders members in format to w.
func Write(w io.Writer, format Format, members []shollu.Member) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, members)
	default:
		return WriteXLSX(w, members)
	}
}

// WriteCSV writes UTF-8 with a byte order mark so spreadsheet programs
// detect the encoding.
func WriteCSV(w io.Writer, members []shollu.Member) error {
	bom := transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())
	cw := csv.NewWriter(bom)
	if err := cw.Write(header); err != nil {
		return err
	}
	for i, m := range members {
		if err := cw.Write(row(i, m)); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return bom.Close()
}

func WriteXLSX(w io.Writer, members []shollu.Member) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	cells := make([]any, len(header))
	for i, h := range header {
		cells[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &cells); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(SheetName, "A1", last, bold); err != nil {
		return err
	}

	for i, m := range members {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		r := row(i, m)
		values := make([]any, len(r))
		for j, v := range r {
			values[j] = v
		}
		// Counts stay numeric so they can be summed.
		values[0] = i + 1
		values[6] = m.TotalAttendance
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(SheetName, "B", "C", 24); err != nil {
		return err
	}
	_, err = f.WriteTo(w)
	return err
}

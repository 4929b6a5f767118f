package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"shollu-partner/internal/shollu"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var members = []shollu.Member{
	{Name: "Ahmad Fauzi", QRCode: "QR-0001", Phone: "0857", Gender: "L", TotalAttendance: 12},
	{Name: "Aisyah Putri", QRCode: "QR-0002", Gender: "P", TotalAttendance: 3},
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, members))

	raw := buf.Bytes()
	require.True(t, bytes.HasPrefix(raw, []byte{0xEF, 0xBB, 0xBF}), "starts with BOM")

	records, err := csv.NewReader(bytes.NewReader(raw[3:])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Nama Lengkap", records[0][1])
	assert.Equal(t, []string{"1", "Ahmad Fauzi", "QR-0001", "0857", "Laki-laki", "", "12", "", ""}, records[1])
	assert.Equal(t, "Perempuan", records[2][4])
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatXLSX, members))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "QR Code", rows[0][2])
	assert.Equal(t, "Aisyah Putri", rows[2][1])
	assert.Equal(t, "3", rows[2][6])
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	f, err = ParseFormat("csv")
	require.NoError(t, err)
	assert.Contains(t, f.ContentType(), "text/csv")

	_, err = ParseFormat("pdf")
	assert.Error(t, err)
}

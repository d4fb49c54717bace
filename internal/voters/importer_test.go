package voters

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dunvault/dunvault/internal/shared"
)

const registerCSV = "\ufeffBIL,NO K/P,NO K/P ID LAIN,JANTINA,TAHUN LAHIR,NAMA PEMILIH,KOD DAERAH MENGUNDI,DAERAH MENGUNDI,KOD LOKALITI,LOKALITI\n" +
	"1,800101125555,,L,1980,AHMAD BIN ALI,176/25/01,KAWANG BARU,176/25/01/001,KG KAWANG\n" +
	"2,850202126666,A1234567,P,1985,\"SITI, BINTI OMAR\",176/25/01,KAWANG BARU,176/25/01/002,KG BENONI\n"

func TestParseCSV(t *testing.T) {
	voters, err := ParseCSV(strings.NewReader(registerCSV), "Kawang")
	require.NoError(t, err)
	require.Len(t, voters, 2)

	assert.Equal(t, 1, voters[0].Bil)
	assert.Nil(t, voters[0].NoKPIDLain)
	assert.Equal(t, "Kawang", voters[0].DUN)
	assert.Nil(t, voters[0].Tag)

	require.NotNil(t, voters[1].NoKPIDLain)
	assert.Equal(t, "A1234567", *voters[1].NoKPIDLain)
	assert.Equal(t, "SITI, BINTI OMAR", voters[1].NamaPemilih)
	assert.Equal(t, 1985, voters[1].TahunLahir)
}

func TestParseCSVRejectsBadInput(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("BIL,NAMA PEMILIH\n1,X\n"), "")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	bad := strings.Replace(registerCSV, "\n1,", "\nx,", 1)
	_, err = ParseCSV(strings.NewReader(bad), "")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = ParseCSV(strings.NewReader(""), "")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

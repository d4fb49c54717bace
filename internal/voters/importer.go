package voters

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/dunvault/dunvault/internal/platform/db"
	"github.com/dunvault/dunvault/internal/shared"
)

// Register export headers, as published by the election commission.
const (
	headerBil        = "BIL"
	headerNoKP       = "NO K/P"
	headerNoKPLain   = "NO K/P ID LAIN"
	headerJantina    = "JANTINA"
	headerTahunLahir = "TAHUN LAHIR"
	headerNama       = "NAMA PEMILIH"
	headerKodDaerah  = "KOD DAERAH MENGUNDI"
	headerDaerah     = "DAERAH MENGUNDI"
	headerKodLok     = "KOD LOKALITI"
	headerLokaliti   = "LOKALITI"
	headerDUN        = "DUN"
)

var requiredHeaders = []string{
	headerBil, headerNoKP, headerNoKPLain, headerJantina, headerTahunLahir,
	headerNama, headerKodDaerah, headerDaerah, headerKodLok, headerLokaliti,
}

var importColumns = []string{
	"bil", "no_kp", "no_kp_id_lain", "jantina", "tahun_lahir", "nama_pemilih",
	"kod_daerah_mengundi", "daerah_mengundi", "kod_lokaliti", "lokaliti", "dun",
}

// ParseCSV reads a register export. Rows without a DUN column value take
// defaultDUN. Imported voters start untagged.
func ParseCSV(r io.Reader, defaultDUN string) ([]Voter, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return nil, shared.InvalidInput("CSV has no header row")
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	for _, name := range requiredHeaders {
		if _, ok := index[name]; !ok {
			return nil, shared.InvalidInput("CSV is missing column " + name)
		}
	}
	field := func(record []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var out []Voter
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, shared.InvalidInput(fmt.Sprintf("CSV line %d: %v", line, err))
		}
		bil, err := strconv.Atoi(field(record, headerBil))
		if err != nil {
			return nil, shared.InvalidInput(fmt.Sprintf("CSV line %d: BIL is not a number", line))
		}
		year, err := strconv.Atoi(field(record, headerTahunLahir))
		if err != nil {
			return nil, shared.InvalidInput(fmt.Sprintf("CSV line %d: TAHUN LAHIR is not a number", line))
		}
		v := Voter{
			Bil:               bil,
			NoKP:              field(record, headerNoKP),
			Jantina:           field(record, headerJantina),
			TahunLahir:        year,
			NamaPemilih:       field(record, headerNama),
			KodDaerahMengundi: field(record, headerKodDaerah),
			DaerahMengundi:    field(record, headerDaerah),
			KodLokaliti:       field(record, headerKodLok),
			Lokaliti:          field(record, headerLokaliti),
			DUN:               field(record, headerDUN),
		}
		if lain := field(record, headerNoKPLain); lain != "" {
			v.NoKPIDLain = &lain
		}
		if v.DUN == "" {
			v.DUN = defaultDUN
		}
		out = append(out, v)
	}
	return out, nil
}

// Importer bulk-loads voters with COPY inside one transaction.
type Importer struct {
	conn db.Beginner
}

// NewImporter constructs an Importer.
func NewImporter(conn db.Beginner) *Importer {
	return &Importer{conn: conn}
}

// Import inserts every voter or none.
func (i *Importer) Import(ctx context.Context, voters []Voter) (int64, error) {
	if len(voters) == 0 {
		return 0, nil
	}
	rows := make([][]any, 0, len(voters))
	for _, v := range voters {
		var dun any
		if v.DUN != "" {
			dun = v.DUN
		}
		rows = append(rows, []any{
			v.Bil, v.NoKP, v.NoKPIDLain, v.Jantina, v.TahunLahir, v.NamaPemilih,
			v.KodDaerahMengundi, v.DaerahMengundi, v.KodLokaliti, v.Lokaliti, dun,
		})
	}
	var copied int64
	err := db.WithTx(ctx, i.conn, func(tx db.DBTX) error {
		n, err := tx.CopyFrom(ctx, pgx.Identifier{"voters"}, importColumns, pgx.CopyFromRows(rows))
		if err != nil {
			return shared.StoreError("voters: copy", err)
		}
		copied = n
		return nil
	})
	return copied, err
}

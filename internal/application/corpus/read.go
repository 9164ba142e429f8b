package corpus

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

// ReadSMILES reads one SMILES per line, or one per CSV record.  When the
// first record names column (case-insensitively), or column is empty and
// the first field reads "smiles", that record is a header and the named
// column is used; otherwise the first field of every record is taken.
// Blank lines and empty fields are skipped.
func ReadSMILES(r io.Reader, column string) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	var out []string
	col, first := 0, true
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidParam, "read SMILES dataset")
		}
		if first {
			first = false
			if idx, ok := headerColumn(rec, column); ok {
				col = idx
				continue
			}
			if column != "" && len(rec) > 1 {
				return nil, errors.New(errors.CodeInvalidParam, "SMILES column not found in header").WithDetail(column)
			}
		}
		if col >= len(rec) {
			continue
		}
		if s := strings.TrimSpace(rec[col]); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

func headerColumn(rec []string, column string) (int, bool) {
	want := strings.ToLower(strings.TrimSpace(column))
	if want == "" {
		want = "smiles"
	}
	for i, f := range rec {
		if strings.ToLower(strings.TrimSpace(f)) == want {
			return i, true
		}
	}
	return 0, false
}

//Personal.AI order the ending

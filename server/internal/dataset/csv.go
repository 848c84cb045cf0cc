package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
)

// LoadCSV reads the CSV file at path.
func LoadCSV(ctx context.Context, path string, opts Options) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %q: %w", path, err)
	}
	defer f.Close()

	res, err := readCSV(ctx, f, "csv:"+path, opts)
	if err != nil {
		return nil, fmt.Errorf("dataset: %s: %w", path, err)
	}
	return res, nil
}

// ReadCSV parses CSV rows from r. The first record is the header.
func ReadCSV(ctx context.Context, r io.Reader, opts Options) (*Result, error) {
	res, err := readCSV(ctx, r, "csv", opts)
	if err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}
	return res, nil
}

func readCSV(ctx context.Context, r io.Reader, source string, opts Options) (*Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty file: no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	c := &collector{opts: opts, source: source}
	for row := 1; ; row++ {
		if row%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", row, err)
		}
		get := func(col string) string {
			if i := idx[col]; i < len(rec) {
				return rec[i]
			}
			return ""
		}
		if err := c.add(row, get); err != nil {
			return nil, err
		}
	}
	return c.result(), nil
}

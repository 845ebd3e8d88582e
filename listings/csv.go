package listings

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

var csvHeader = []string{"year", "make", "model", "price", "mileage", "location"}

// EncodeCSV serializes listings into the self-describing CSV format the
// cache file is expected to hold: a header row followed by one row per
// listing.
func EncodeCSV(rows []Listing) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rows {
		record := []string{
			strconv.Itoa(r.Year),
			r.Make,
			r.Model,
			strconv.FormatFloat(r.Price, 'f', -1, 64),
			strconv.FormatFloat(r.Mileage, 'f', -1, 64),
			r.Location,
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv writer: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeCSV parses a cache file's bytes back into listings. Malformed
// numeric fields default to zero rather than failing the whole file,
// mirroring the permissive parsing the original implementation relied on.
func DecodeCSV(data []byte) ([]Listing, error) {
	r := csv.NewReader(bytes.NewReader(data))

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) != len(csvHeader) {
		return nil, fmt.Errorf("unexpected csv header: %v", header)
	}

	var out []Listing
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}

		year, _ := strconv.Atoi(record[0])
		price, _ := strconv.ParseFloat(record[3], 64)
		mileage, _ := strconv.ParseFloat(record[4], 64)

		out = append(out, Listing{
			Year:     year,
			Make:     record[1],
			Model:    record[2],
			Price:    price,
			Mileage:  mileage,
			Location: record[5],
		})
	}
	return out, nil
}

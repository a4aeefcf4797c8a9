package importer

import (
	"io"
	"time"
)

type Source string

const (
	SourcePriceList Source = "pricelist"
)

// PriceRow is one parsed line of a supplier price list. Line is the 1-based
// record number in the file, for error messages.
type PriceRow struct {
	Line          int
	ItemCode      string
	EffectiveDate time.Time
	Retail        float64
	Consumer      float64
}

type Importer interface {
	Parse(r io.Reader) ([]PriceRow, error)
}

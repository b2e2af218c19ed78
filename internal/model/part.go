// Package model defines the data structures shared by the BOM resolution
// engine, its ingestion loaders and its report writers.
package model

import (
	"math"
	"strconv"
	"strings"
)

// PartRecord is one parent/component line of a BOM source.
type PartRecord struct {
	ProductNo   string            // Parent part number
	ComponentNo string            // Child part number
	Quantity    float64           // Quantity of ComponentNo per one ProductNo
	Attributes  map[string]string // Every other column of the row, keyed by header
	Line        int               // 1-based line or row number in the source, 0 if unknown
}

// NewPartRecord trims the part numbers and rejects records whose product or
// component number is empty.
func NewPartRecord(source string, line int, productNo, componentNo string, qty float64, attrs map[string]string) (PartRecord, error) {
	productNo = strings.TrimSpace(productNo)
	componentNo = strings.TrimSpace(componentNo)
	if productNo == "" {
		return PartRecord{}, &MalformedSourceError{Source: source, Line: line, Reason: "empty product number"}
	}
	if componentNo == "" {
		return PartRecord{}, &MalformedSourceError{Source: source, Line: line, Reason: "empty component number"}
	}
	if qty < 0 || math.IsNaN(qty) || math.IsInf(qty, 0) {
		qty = 1
	}
	return PartRecord{
		ProductNo:   productNo,
		ComponentNo: componentNo,
		Quantity:    qty,
		Attributes:  attrs,
		Line:        line,
	}, nil
}

// ParseQuantity converts a raw quantity cell into a number.
// Empty, unparseable, negative and non-finite values yield 1.
// A single decimal comma ("2,5") is read as a decimal point, which is how
// several European ERP exports write fractional quantities.
func ParseQuantity(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 1
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	q, err := strconv.ParseFloat(s, 64)
	if err != nil || q < 0 || math.IsNaN(q) || math.IsInf(q, 0) {
		return 1
	}
	return q
}

// Attr returns the named attribute, or "" when the record has none.
func (r PartRecord) Attr(name string) string {
	if r.Attributes == nil {
		return ""
	}
	return r.Attributes[name]
}

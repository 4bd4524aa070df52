// Package resultio serializes result records, mirroring the ingestion
// package's encoding/csv usage on the write side: the parser package reads
// rows into activities, this package writes rows from records.
package resultio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/example/refsim/internal/result"
)

// Writer emits result.Record rows as CSV, writing the header on the first
// call to Write.
type Writer struct {
	w           *csv.Writer
	wroteHeader bool
}

// NewWriter constructs a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: csv.NewWriter(w)}
}

// Write appends one record, writing the header row first if this is the
// first call.
func (wr *Writer) Write(rec result.Record) error {
	if !wr.wroteHeader {
		if err := wr.w.Write(result.Columns); err != nil {
			return fmt.Errorf("resultio: write header: %w", err)
		}
		wr.wroteHeader = true
	}
	row := []string{
		rec.Scenario,
		strconv.Itoa(rec.Trial),
		strconv.Itoa(rec.Year),
		rec.Application,
		rec.Substance,
		rec.DomesticKg.String(),
		rec.ImportKg.String(),
		rec.ExportKg.String(),
		rec.RecycleKg.String(),
		rec.DomesticConsumptionTCO2e.String(),
		rec.ImportConsumptionTCO2e.String(),
		rec.ExportConsumptionTCO2e.String(),
		rec.RecycleConsumptionTCO2e.String(),
		rec.PopulationUnits.String(),
		rec.PopulationNewUnits.String(),
		rec.RechargeEmissionsTCO2e.String(),
		rec.EolEmissionsTCO2e.String(),
		rec.InitialChargeEmissionsTCO2e.String(),
		rec.EnergyConsumptionKwh.String(),
		rec.ImportInitialChargeValueKg.String(),
		rec.ImportInitialChargeConsumptionTCO2e.String(),
		rec.ImportPopulationUnits.String(),
		rec.ExportInitialChargeValueKg.String(),
		rec.ExportInitialChargeConsumptionTCO2e.String(),
		rec.BankKg.String(),
		rec.BankTCO2e.String(),
		rec.BankChangeKg.String(),
		rec.BankChangeTCO2e.String(),
	}
	if err := wr.w.Write(row); err != nil {
		return fmt.Errorf("resultio: write row: %w", err)
	}
	return nil
}

// Flush flushes the underlying csv.Writer and returns any error it
// accumulated.
func (wr *Writer) Flush() error {
	wr.w.Flush()
	return wr.w.Error()
}

// WriteAll writes every record in order, then flushes. The header line is
// written even when records is empty.
func WriteAll(w io.Writer, records []result.Record) error {
	wr := NewWriter(w)
	for _, rec := range records {
		if err := wr.Write(rec); err != nil {
			return err
		}
	}
	if !wr.wroteHeader {
		if err := wr.w.Write(result.Columns); err != nil {
			return fmt.Errorf("resultio: write header: %w", err)
		}
		wr.wroteHeader = true
	}
	return wr.Flush()
}

package benchmark

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/codes"
)

// RecordSink receives each case as soon as it is fully assembled.
type RecordSink interface {
	Append(ctx context.Context, record Record) error
}

// Output column layout. The resume logic depends on the searched case
// number sitting in the fourth column, and the overall shape is shared
// with harvesters of other county portals, which is why columns this
// portal can never fill still exist.
var csvHeader = []string{
	"_id", "_state", "_county", "PortalID", "CaseNum", "AgencyReportNum",
	"PartyID", "FirstName", "MiddleName", "LastName", "Suffix", "DOB",
	"Race", "Sex", "ArrestDate", "FilingDate", "OffenseDate",
	"DivisionName", "CaseStatus", "DefenseAttorney", "PublicDefender",
	"Judge", "ChargeCount", "ChargeStatute", "ChargeDescription",
	"ChargeLevel", "ChargeDegree", "ChargeDisposition",
	"ChargeDispositionDate", "ChargeOffenseDate", "ChargeCitationNum",
	"ChargePlea", "ChargePleaDate", "ArrestingOfficer",
	"ArrestingOfficerBadgeNumber",
}

// CsvSink appends records to a CSV file, one row per charge, flushing
// after every record so the file tail is always a usable checkpoint.
type CsvSink struct {
	file   *os.File
	writer *csv.Writer
}

func NewCsvSink(path string) (*CsvSink, error) {
	_, statErr := os.Stat(path)
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening output file: %w", err)
	}
	sink := &CsvSink{file: file, writer: csv.NewWriter(file)}
	if errors.Is(statErr, fs.ErrNotExist) {
		if err := sink.writer.Write(csvHeader); err != nil {
			file.Close()
			return nil, err
		}
		sink.writer.Flush()
		if err := sink.writer.Error(); err != nil {
			file.Close()
			return nil, err
		}
	}
	return sink, nil
}

func (s *CsvSink) Append(ctx context.Context, record Record) error {
	_, span := tracer.Start(ctx, "CsvSink.Append")
	defer span.End()

	for _, row := range recordRows(record) {
		if err := s.writer.Write(row); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "write record row")
			return err
		}
	}
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "flush record rows")
		return err
	}
	return nil
}

func (s *CsvSink) Close() error {
	s.writer.Flush()
	return s.file.Close()
}

func recordRows(record Record) [][]string {
	charges := record.Charges
	if len(charges) == 0 {
		// a case with no charge rows still has to reach the output so
		// the checkpoint advances past it
		charges = []Charge{{}}
	}

	rows := make([][]string, 0, len(charges))
	for _, charge := range charges {
		count := ""
		if charge.Count != 0 {
			count = strconv.Itoa(charge.Count)
		}
		rows = append(rows, []string{
			record.Id,
			record.State,
			record.County,
			record.PortalId,
			record.CaseNumber,
			record.AgencyReportNumber,
			record.PartyId,
			record.FirstName,
			record.MiddleName,
			record.LastName,
			record.Suffix,
			record.Dob,
			record.Race,
			record.Sex,
			record.ArrestDate,
			record.FilingDate,
			record.OffenseDate,
			record.DivisionName,
			record.CaseStatus,
			strings.Join(record.DefenseAttorneys, "; "),
			strings.Join(record.PublicDefenders, "; "),
			record.Judge,
			count,
			charge.Statute,
			charge.Description,
			charge.Level,
			charge.Degree,
			charge.Disposition,
			charge.DispositionDate,
			charge.OffenseDate,
			charge.CitationNumber,
			charge.Plea,
			charge.PleaDate,
			record.ArrestingOfficer,
			record.ArrestingOfficerBadge,
		})
	}
	return rows
}

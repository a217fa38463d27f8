// Package fraud serves the fraud case review screen.
package fraud

import (
	"strconv"
	"time"

	"github.com/odyssey-erp/marketdesk/internal/export"
	"github.com/odyssey-erp/marketdesk/internal/listview"
)

// Resource is the marketplace API collection for fraud cases.
const Resource = "fraud-cases"

// Status is the review state of a case.
type Status string

const (
	StatusOpen          Status = "open"
	StatusInvestigating Status = "investigating"
	StatusResolved      Status = "resolved"
	StatusClosed        Status = "closed"
)

var statusLabels = map[string]string{
	string(StatusOpen):          "Open",
	string(StatusInvestigating): "Investigating",
	string(StatusResolved):      "Resolved",
	string(StatusClosed):        "Closed",
}

var reporterLabels = map[string]string{
	"buyer":  "Pembeli",
	"seller": "Penjual",
	"system": "Sistem",
}

// Case is a reported fraud case.
type Case struct {
	ID           string       `json:"id" validate:"required"`
	Title        string       `json:"title" validate:"required,max=200"`
	Description  string       `json:"description"`
	ReportedUser string       `json:"reported_user" validate:"required"`
	Reporter     string       `json:"reporter" validate:"oneof=buyer seller system"`
	Status       Status       `json:"status" validate:"oneof=open investigating resolved closed"`
	Amount       float64      `json:"amount" validate:"gte=0"`
	Notes        string       `json:"notes" validate:"max=2000"`
	Evidence     EvidenceList `json:"evidence" validate:"-"`
	ReportedAt   time.Time    `json:"reported_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// RecordID implements entity.Record.
func (c Case) RecordID() string { return c.ID }

// StatusLabel returns the display label of the case status.
func (c Case) StatusLabel() string {
	return statusLabels[string(c.Status)]
}

// Schema declares the fraud screen's filters and sort keys.
func Schema() *listview.Schema[Case] {
	return listview.NewSchema[Case]().
		WithFilter("status", listview.Equals(func(c Case) string { return string(c.Status) })).
		WithFilter("reporter", listview.Equals(func(c Case) string { return c.Reporter })).
		WithFilter("search", listview.Search(
			func(c Case) string { return c.Title },
			func(c Case) string { return c.Description },
			func(c Case) string { return c.ReportedUser },
		)).
		WithFilter("date_from", listview.DateFrom(func(c Case) time.Time { return c.ReportedAt })).
		WithFilter("date_to", listview.DateTo(func(c Case) time.Time { return c.ReportedAt })).
		WithSort("reported_at", listview.ByTime(func(c Case) time.Time { return c.ReportedAt })).
		WithSort("title", listview.ByString(func(c Case) string { return c.Title })).
		WithSort("status", listview.ByString(func(c Case) string { return string(c.Status) })).
		WithSort("amount", listview.ByNumber(func(c Case) float64 { return c.Amount }))
}

// Columns declares the export layout.
func Columns() []export.Column[Case] {
	return []export.Column[Case]{
		{Header: "ID", Cell: func(c Case, _ *export.Formatter) string { return c.ID }},
		{Header: "Judul", Cell: func(c Case, _ *export.Formatter) string { return c.Title }},
		{Header: "Pengguna Dilaporkan", Cell: func(c Case, _ *export.Formatter) string { return c.ReportedUser }},
		{Header: "Pelapor", Cell: func(c Case, f *export.Formatter) string { return f.Label(reporterLabels, c.Reporter) }},
		{Header: "Status", Cell: func(c Case, f *export.Formatter) string { return f.Label(statusLabels, string(c.Status)) }},
		{Header: "Nilai", Cell: func(c Case, f *export.Formatter) string { return f.Currency(c.Amount) }},
		{Header: "Dilaporkan", Cell: func(c Case, f *export.Formatter) string { return f.DateTime(c.ReportedAt) }},
		{Header: "Bukti", Cell: func(c Case, _ *export.Formatter) string {
			if len(c.Evidence) == 0 {
				return "-"
			}
			return strconv.Itoa(len(c.Evidence)) + " item: " + c.Evidence.Summary()
		}},
	}
}

// Package vouchers serves the voucher management screen.
package vouchers

import (
	"strings"
	"time"

	"github.com/odyssey-erp/marketdesk/internal/export"
	"github.com/odyssey-erp/marketdesk/internal/listview"
	"github.com/odyssey-erp/marketdesk/internal/mutation"
)

// Resource is the marketplace API collection for vouchers.
const Resource = "vouchers"

// Status of a voucher.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusExpired  Status = "expired"
)

// Discount types.
const (
	TypePercentage = "percentage"
	TypeFixed      = "fixed"
)

var statusLabels = map[string]string{
	string(StatusActive):   "Aktif",
	string(StatusInactive): "Nonaktif",
	string(StatusExpired):  "Kedaluwarsa",
}

var typeLabels = map[string]string{
	TypePercentage: "Persentase",
	TypeFixed:      "Potongan Tetap",
}

// Voucher is a discount code.
type Voucher struct {
	ID          string    `json:"id" validate:"required"`
	Code        string    `json:"code" validate:"required,alphanum,max=32"`
	Description string    `json:"description" validate:"max=500"`
	Type        string    `json:"type" validate:"oneof=percentage fixed"`
	Discount    float64   `json:"discount" validate:"gt=0"`
	MinPurchase float64   `json:"min_purchase" validate:"gte=0"`
	Quota       int       `json:"quota" validate:"gte=0"`
	Used        int       `json:"used" validate:"gte=0"`
	Status      Status    `json:"status" validate:"oneof=active inactive expired"`
	ValidFrom   time.Time `json:"valid_from"`
	ValidUntil  time.Time `json:"valid_until"`
	CreatedAt   time.Time `json:"created_at"`
}

// RecordID implements entity.Record.
func (v Voucher) RecordID() string { return v.ID }

// Remaining is the unused quota.
func (v Voucher) Remaining() int {
	if v.Used >= v.Quota {
		return 0
	}
	return v.Quota - v.Used
}

// Input carries the editable voucher fields.
type Input struct {
	Code        string    `json:"code"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
	Discount    float64   `json:"discount"`
	MinPurchase float64   `json:"min_purchase"`
	Quota       int       `json:"quota"`
	ValidFrom   time.Time `json:"valid_from"`
	ValidUntil  time.Time `json:"valid_until"`
}

func (in Input) normalize() Input {
	in.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	in.Description = strings.TrimSpace(in.Description)
	in.Type = strings.ToLower(strings.TrimSpace(in.Type))
	return in
}

func (in Input) apply(v Voucher) Voucher {
	v.Code = in.Code
	v.Description = in.Description
	v.Type = in.Type
	v.Discount = in.Discount
	v.MinPurchase = in.MinPurchase
	v.Quota = in.Quota
	v.ValidFrom = in.ValidFrom
	v.ValidUntil = in.ValidUntil
	return v
}

// checkRules covers the cross-field rules struct tags cannot express.
func checkRules(v Voucher) error {
	fields := map[string]string{}
	if v.Type == TypePercentage && v.Discount > 100 {
		fields["discount"] = "maksimal 100"
	}
	if !v.ValidFrom.IsZero() && !v.ValidUntil.IsZero() && v.ValidUntil.Before(v.ValidFrom) {
		fields["valid_until"] = "harus setelah tanggal mulai"
	}
	if v.Quota > 0 && v.Used > v.Quota {
		fields["quota"] = "tidak boleh kurang dari jumlah terpakai"
	}
	if len(fields) == 0 {
		return nil
	}
	return &mutation.ValidationError{Fields: fields}
}

// Schema declares the voucher screen's filters and sort keys.
func Schema() *listview.Schema[Voucher] {
	return listview.NewSchema[Voucher]().
		WithFilter("status", listview.Equals(func(v Voucher) string { return string(v.Status) })).
		WithFilter("type", listview.Equals(func(v Voucher) string { return v.Type })).
		WithFilter("search", listview.Search(
			func(v Voucher) string { return v.Code },
			func(v Voucher) string { return v.Description },
		)).
		WithSort("code", listview.ByString(func(v Voucher) string { return v.Code })).
		WithSort("discount", listview.ByNumber(func(v Voucher) float64 { return v.Discount })).
		WithSort("quota", listview.ByNumber(func(v Voucher) float64 { return float64(v.Quota) })).
		WithSort("valid_until", listview.ByTime(func(v Voucher) time.Time { return v.ValidUntil }))
}

// Columns declares the export layout.
func Columns() []export.Column[Voucher] {
	return []export.Column[Voucher]{
		{Header: "Kode", Cell: func(v Voucher, _ *export.Formatter) string { return v.Code }},
		{Header: "Deskripsi", Cell: func(v Voucher, _ *export.Formatter) string { return v.Description }},
		{Header: "Tipe", Cell: func(v Voucher, f *export.Formatter) string { return f.Label(typeLabels, v.Type) }},
		{Header: "Diskon", Cell: func(v Voucher, f *export.Formatter) string {
			if v.Type == TypePercentage {
				return f.Number(v.Discount) + "%"
			}
			return f.Currency(v.Discount)
		}},
		{Header: "Min. Belanja", Cell: func(v Voucher, f *export.Formatter) string { return f.Currency(v.MinPurchase) }},
		{Header: "Kuota", Cell: func(v Voucher, f *export.Formatter) string { return f.Int(v.Used) + "/" + f.Int(v.Quota) }},
		{Header: "Berlaku Sampai", Cell: func(v Voucher, f *export.Formatter) string { return f.Date(v.ValidUntil) }},
		{Header: "Status", Cell: func(v Voucher, f *export.Formatter) string { return f.Label(statusLabels, string(v.Status)) }},
	}
}

package internal

import (
	"time"

	"github.com/shopspring/decimal"
)

type SourceFormat string

const (
	FormatAuto SourceFormat = "auto"
	FormatCSV  SourceFormat = "csv"
	FormatHTML SourceFormat = "html"
	FormatXLSX SourceFormat = "xlsx"
)

// Table is a decoded spreadsheet: the header row as published and one map per data row keyed by
// that header text.
type Table struct {
	Headers []string
	Rows    []map[string]string
}

type FeeRecord struct {
	ID            int             `json:"id"`
	Origin        string          `json:"origin"`
	Unit          string          `json:"unit"`
	CostCenter    string          `json:"costCenter"`
	Area          string          `json:"area"`
	ProcessName   string          `json:"processName"`
	TariffName    string          `json:"tariffName"`
	Amount        decimal.Decimal `json:"amount"`
	AmountRawText string          `json:"amountRawText"`
	Requirements  string          `json:"requirements"`
	Email         string          `json:"email"`
	PhoneDigits   string          `json:"phoneDigits"`
	PaymentCodes  []string        `json:"paymentCodes,omitempty"`
}

type QueryState struct {
	SearchText   string
	SelectedUnit *string
	FreeOnly     bool
	MaxAmount    *decimal.Decimal
}

type Page struct {
	Items      []FeeRecord `json:"items"`
	PageNumber int         `json:"pageNumber"`
	TotalPages int         `json:"totalPages"`
	TotalItems int         `json:"totalItems"`
}

type SearchField string

const (
	FieldProcess SearchField = "process"
	FieldTariff  SearchField = "tariff"
	FieldUnit    SearchField = "unit"
	FieldArea    SearchField = "area"
)

// SearchFields are the record fields the text search looks at.
var SearchFields = []SearchField{FieldProcess, FieldTariff, FieldUnit, FieldArea}

func (r FeeRecord) Field(f SearchField) string {
	switch f {
	case FieldProcess:
		return r.ProcessName
	case FieldTariff:
		return r.TariffName
	case FieldUnit:
		return r.Unit
	case FieldArea:
		return r.Area
	default:
		return ""
	}
}

type ChannelID string

const (
	ChannelCashierOnsite     ChannelID = "cashier-onsite"
	ChannelCashierOnsiteFree ChannelID = "cashier-onsite-free"
	ChannelBankFixed         ChannelID = "bank-fixed"
	ChannelBankPercentage    ChannelID = "bank-percentage"
	ChannelRegionalCashier   ChannelID = "regional-cashier"
	ChannelCardGateway       ChannelID = "card-gateway"
)

type Estimate struct {
	Channel     ChannelID       `json:"channel"`
	Eligible    bool            `json:"eligible"`
	Reason      string          `json:"reason,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Commission  decimal.Decimal `json:"commission"`
	Total       decimal.Decimal `json:"total"`
	Code        *string         `json:"code,omitempty"`
	CodePending bool            `json:"codePending,omitempty"`
	Message     string          `json:"message,omitempty"`
}

type ChannelState struct {
	Channel ChannelID `json:"channel"`
	Label   string    `json:"label"`
	Enabled bool      `json:"enabled"`
}

type Detail struct {
	Record       FeeRecord `json:"record"`
	Requirements []string  `json:"requirements"`
	MailtoURL    *string   `json:"mailtoUrl,omitempty"`
	MessagingURL *string   `json:"messagingUrl,omitempty"`
}

type LoadRun struct {
	TraceID  string
	Source   string
	Format   SourceFormat
	Rows     int
	Dropped  int
	Status   string
	Error    string
	LoadedAt time.Time
}

type ExportRun struct {
	TraceID string
	Format  string
	Label   string
	Rows    int
	Path    string
}

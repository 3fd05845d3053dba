package commission

import (
	"strings"

	"github.com/shopspring/decimal"

	"tarifario/internal"
	"tarifario/internal/util"
)

const (
	MessageNoCode      = "no payment code required"
	MessageCoupon      = "pay via externally generated coupon"
	ReasonUnknown      = "unknown channel"
	noCodeIndex        = -1
	cardGatewayKeyword = "matricula"
)

var (
	cashierFloor     = decimal.NewFromInt(20)
	bankFixedCeiling = decimal.NewFromInt(144)
	flatOne          = decimal.RequireFromString("1.00")
	flatBank         = decimal.RequireFromString("1.80")
	bankRate         = decimal.RequireFromString("0.0125")
	cardRate         = decimal.RequireFromString("0.058")
)

type channel struct {
	id         internal.ChannelID
	label      string
	reason     string
	codeIndex  int
	message    string
	eligible   func(r internal.FeeRecord) bool
	commission func(amount decimal.Decimal) decimal.Decimal
}

func flat(v decimal.Decimal) func(decimal.Decimal) decimal.Decimal {
	return func(decimal.Decimal) decimal.Decimal { return v }
}

func rate(v decimal.Decimal) func(decimal.Decimal) decimal.Decimal {
	return func(amount decimal.Decimal) decimal.Decimal { return amount.Mul(v) }
}

// channels is the selector order.
var channels = []channel{
	{
		id:         internal.ChannelCashierOnsite,
		label:      "Caja de la universidad",
		reason:     "amount below 20",
		codeIndex:  0,
		eligible:   func(r internal.FeeRecord) bool { return r.Amount.GreaterThanOrEqual(cashierFloor) },
		commission: flat(flatOne),
	},
	{
		id:         internal.ChannelCashierOnsiteFree,
		label:      "Caja de la universidad (montos menores)",
		reason:     "amount of 20 or more",
		codeIndex:  noCodeIndex,
		message:    MessageNoCode,
		eligible:   func(r internal.FeeRecord) bool { return r.Amount.LessThan(cashierFloor) },
		commission: flat(decimal.Zero),
	},
	{
		id:         internal.ChannelBankFixed,
		label:      "Banco (comisión fija)",
		reason:     "amount above 144",
		codeIndex:  1,
		eligible:   func(r internal.FeeRecord) bool { return r.Amount.LessThanOrEqual(bankFixedCeiling) },
		commission: flat(flatBank),
	},
	{
		id:         internal.ChannelBankPercentage,
		label:      "Banco (comisión porcentual)",
		reason:     "amount of 144 or less",
		codeIndex:  1,
		eligible:   func(r internal.FeeRecord) bool { return r.Amount.GreaterThan(bankFixedCeiling) },
		commission: rate(bankRate),
	},
	{
		id:         internal.ChannelRegionalCashier,
		label:      "Caja regional",
		codeIndex:  2,
		eligible:   func(internal.FeeRecord) bool { return true },
		commission: flat(flatOne),
	},
	{
		id:        internal.ChannelCardGateway,
		label:     "Pasarela de pago con tarjeta",
		reason:    "only enrollment fees are payable by card",
		codeIndex: noCodeIndex,
		message:   MessageCoupon,
		eligible: func(r internal.FeeRecord) bool {
			return strings.Contains(util.Fold(r.ProcessName+" "+r.TariffName), cardGatewayKeyword)
		},
		commission: rate(cardRate),
	},
}

func lookup(id internal.ChannelID) (channel, bool) {
	for _, c := range channels {
		if c.id == id {
			return c, true
		}
	}
	return channel{}, false
}

// Channels lists every channel id in selector order.
func Channels() []internal.ChannelID {
	out := make([]internal.ChannelID, 0, len(channels))
	for _, c := range channels {
		out = append(out, c.id)
	}
	return out
}

// Known reports whether id names a channel.
func Known(id internal.ChannelID) bool {
	_, ok := lookup(id)
	return ok
}

func Label(id internal.ChannelID) string {
	if c, ok := lookup(id); ok {
		return c.label
	}
	return string(id)
}

func Eligible(r internal.FeeRecord, id internal.ChannelID) bool {
	c, ok := lookup(id)
	return ok && c.eligible(r)
}

// Availability reports every channel with its enabled flag for r.
func Availability(r internal.FeeRecord) []internal.ChannelState {
	out := make([]internal.ChannelState, 0, len(channels))
	for _, c := range channels {
		out = append(out, internal.ChannelState{Channel: c.id, Label: c.label, Enabled: c.eligible(r)})
	}
	return out
}

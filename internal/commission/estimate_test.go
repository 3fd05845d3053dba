package commission

import (
	"testing"

	"github.com/shopspring/decimal"

	"tarifario/internal"
	"tarifario/internal/util"
)

func record(amount string, codes ...string) internal.FeeRecord {
	return internal.FeeRecord{
		ID:           1,
		ProcessName:  "Constancia",
		TariffName:   "Constancia de estudios",
		Amount:       decimal.RequireFromString(amount),
		PaymentCodes: codes,
	}
}

func TestEstimateBankChannels(t *testing.T) {
	est := Estimate(record("100"), internal.ChannelBankFixed)
	if !est.Eligible || util.FormatMoney(est.Commission) != "S/ 1.80" || util.FormatMoney(est.Total) != "S/ 101.80" {
		t.Fatalf("bank-fixed 100: %+v", est)
	}

	if est := Estimate(record("200"), internal.ChannelBankFixed); est.Eligible {
		t.Fatalf("bank-fixed accepted 200: %+v", est)
	}
	est = Estimate(record("200"), internal.ChannelBankPercentage)
	if !est.Eligible || !est.Commission.Equal(decimal.RequireFromString("2.50")) {
		t.Fatalf("bank-percentage 200: %+v", est)
	}
	if !est.Total.Equal(decimal.RequireFromString("202.5")) {
		t.Fatalf("total=%s", est.Total)
	}
}

func TestEstimateEligibilityBoundaries(t *testing.T) {
	cases := []struct {
		channel internal.ChannelID
		amount  string
		want    bool
	}{
		{internal.ChannelCashierOnsite, "20", true},
		{internal.ChannelCashierOnsite, "19.99", false},
		{internal.ChannelCashierOnsiteFree, "19.99", true},
		{internal.ChannelCashierOnsiteFree, "20", false},
		{internal.ChannelBankFixed, "144", true},
		{internal.ChannelBankPercentage, "144", false},
		{internal.ChannelBankPercentage, "144.01", true},
		{internal.ChannelRegionalCashier, "0", true},
		{internal.ChannelCardGateway, "200", false},
	}
	for _, tc := range cases {
		t.Run(string(tc.channel)+"/"+tc.amount, func(t *testing.T) {
			est := Estimate(record(tc.amount), tc.channel)
			if est.Eligible != tc.want {
				t.Fatalf("eligible=%v want %v", est.Eligible, tc.want)
			}
			if Eligible(record(tc.amount), tc.channel) != tc.want {
				t.Fatalf("Eligible disagrees with Estimate")
			}
			if !est.Eligible && (est.Reason == "" || !est.Total.IsZero() || est.Code != nil) {
				t.Fatalf("ineligible result carries figures: %+v", est)
			}
		})
	}
}

func TestEstimateCardGateway(t *testing.T) {
	r := record("200")
	r.ProcessName = "MATRÍCULA"
	est := Estimate(r, internal.ChannelCardGateway)
	if !est.Eligible || est.Message != MessageCoupon {
		t.Fatalf("card: %+v", est)
	}
	if !est.Commission.Equal(decimal.RequireFromString("11.6")) || est.Code != nil || est.CodePending {
		t.Fatalf("card figures: %+v", est)
	}
}

func TestEstimateCashierFreeMessage(t *testing.T) {
	est := Estimate(record("5", "C-01"), internal.ChannelCashierOnsiteFree)
	if !est.Eligible || !est.Commission.IsZero() || est.Message != MessageNoCode || est.Code != nil {
		t.Fatalf("free cashier: %+v", est)
	}
}

func TestEstimatePaymentCodes(t *testing.T) {
	codes := []string{"C-01", "", " R-77 "}

	est := Estimate(record("50", codes...), internal.ChannelCashierOnsite)
	if est.Code == nil || *est.Code != "C-01" || est.CodePending {
		t.Fatalf("cashier code: %+v", est)
	}

	est = Estimate(record("50", codes...), internal.ChannelBankFixed)
	if est.Code != nil || !est.CodePending {
		t.Fatalf("blank bank code should be pending: %+v", est)
	}

	est = Estimate(record("50", codes...), internal.ChannelRegionalCashier)
	if est.Code == nil || *est.Code != "R-77" {
		t.Fatalf("regional code: %+v", est)
	}

	est = Estimate(record("50"), internal.ChannelRegionalCashier)
	if est.Code != nil || !est.CodePending {
		t.Fatalf("missing code should be pending: %+v", est)
	}

	est = Estimate(record("0", codes...), internal.ChannelRegionalCashier)
	if est.Code != nil || est.CodePending {
		t.Fatalf("free record shows a code: %+v", est)
	}
}

func TestEstimateUnknownChannel(t *testing.T) {
	est := Estimate(record("50"), internal.ChannelID("carrier-pigeon"))
	if est.Eligible || est.Reason != ReasonUnknown {
		t.Fatalf("unknown: %+v", est)
	}
}

func TestAvailability(t *testing.T) {
	states := Availability(record("200"))
	if len(states) != len(Channels()) {
		t.Fatalf("states=%d", len(states))
	}
	enabled := map[internal.ChannelID]bool{}
	for _, s := range states {
		if s.Label == "" {
			t.Fatalf("missing label for %s", s.Channel)
		}
		enabled[s.Channel] = s.Enabled
	}
	want := map[internal.ChannelID]bool{
		internal.ChannelCashierOnsite:     true,
		internal.ChannelCashierOnsiteFree: false,
		internal.ChannelBankFixed:         false,
		internal.ChannelBankPercentage:    true,
		internal.ChannelRegionalCashier:   true,
		internal.ChannelCardGateway:       false,
	}
	for id, w := range want {
		if enabled[id] != w {
			t.Fatalf("%s enabled=%v want %v", id, enabled[id], w)
		}
	}
}

func TestKnown(t *testing.T) {
	for _, id := range Channels() {
		if !Known(id) {
			t.Fatalf("%s not known", id)
		}
	}
	if Known("") || Known("carrier-pigeon") {
		t.Fatalf("unknown id reported as known")
	}
}

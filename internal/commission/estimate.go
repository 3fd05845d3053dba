package commission

import (
	"strings"

	"tarifario/internal"
)

// Estimate computes the commission for paying r through the given channel. Unknown and
// ineligible channels yield Eligible false with a reason and no figures.
func Estimate(r internal.FeeRecord, id internal.ChannelID) internal.Estimate {
	c, ok := lookup(id)
	if !ok {
		return internal.Estimate{Channel: id, Reason: ReasonUnknown}
	}
	if !c.eligible(r) {
		return internal.Estimate{Channel: id, Reason: c.reason}
	}

	fee := c.commission(r.Amount)
	est := internal.Estimate{
		Channel:    id,
		Eligible:   true,
		Amount:     r.Amount,
		Commission: fee,
		Total:      r.Amount.Add(fee),
		Message:    c.message,
	}
	est.Code, est.CodePending = resolveCode(r, c.codeIndex)
	return est
}

func resolveCode(r internal.FeeRecord, index int) (*string, bool) {
	if r.Amount.IsZero() || index == noCodeIndex {
		return nil, false
	}
	if index < len(r.PaymentCodes) {
		if code := strings.TrimSpace(r.PaymentCodes[index]); code != "" {
			return &code, false
		}
	}
	return nil, true
}

package pipeline

import (
	"net/url"
	"strings"

	"tarifario/internal"
	"tarifario/internal/config"
	"tarifario/internal/util"
)

func BuildDetail(r internal.FeeRecord, cfg config.Config) internal.Detail {
	d := internal.Detail{
		Record:       r,
		Requirements: util.SplitRequirements(r.Requirements),
	}
	if email := strings.TrimSpace(r.Email); email != "" {
		d.MailtoURL = util.StringPtr("mailto:" + url.PathEscape(email))
	}
	if r.PhoneDigits != "" {
		base := strings.TrimRight(cfg.MessagingBaseURL, "/")
		d.MessagingURL = util.StringPtr(base + "/" + cfg.PhoneCountryCode + r.PhoneDigits)
	}
	return d
}

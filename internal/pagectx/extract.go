package pagectx

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/text/language"

	"github.com/shiftpages/funneltrace/internal/model"
)

// DirectReferrer is the referrer value recorded for visits with no
// document referrer.
const DirectReferrer = "Direct"

// Parameter alias lists, in priority order: the first alias with a
// non-blank value wins. Matching is case-insensitive, so "Email",
// "EMAIL", and "email" all hit the same alias.
var (
	emailAliases     = []string{"email", "e", "email_address", "mail"}
	firstNameAliases = []string{"first_name", "firstname", "fname"}
	lastNameAliases  = []string{"last_name", "lastname", "lname", "surname"}
	fullNameAliases  = []string{"name", "full_name"}
	phoneAliases     = []string{"phone", "phone_number", "tel", "mobile"}
	countryAliases   = []string{"country"}
	referralAliases  = []string{"ref", "referral", "referred_by"}

	utmSourceAliases   = []string{"utm_source"}
	utmMediumAliases   = []string{"utm_medium"}
	utmCampaignAliases = []string{"utm_campaign"}
	utmContentAliases  = []string{"utm_content"}
)

// Extract derives the context attributes for a page view. It only
// returns an error when the page URL cannot be parsed at all; missing
// or unrecognized parameters simply leave fields empty.
func Extract(page model.PageInfo) (model.ContextAttributes, error) {
	u, err := url.Parse(page.URL)
	if err != nil {
		return model.ContextAttributes{}, fmt.Errorf("failed to parse page url: %w", err)
	}

	params := newParamSet(u.Query())

	attrs := model.ContextAttributes{
		Page:      u.Path,
		SourceURL: page.URL,

		FirstName: params.first(firstNameAliases),
		LastName:  params.first(lastNameAliases),
		FullName:  params.first(fullNameAliases),
		Email:     params.first(emailAliases),
		Phone:     params.first(phoneAliases),
		Country:   params.first(countryAliases),

		UTMSource:   params.first(utmSourceAliases),
		UTMMedium:   params.first(utmMediumAliases),
		UTMCampaign: params.first(utmCampaignAliases),
		UTMContent:  params.first(utmContentAliases),

		Referrer:     page.Referrer,
		UserAgent:    page.UserAgent,
		Language:     normalizeLanguage(page.Language),
		ScreenWidth:  page.ScreenWidth,
		ScreenHeight: page.ScreenHeight,
	}

	if attrs.Referrer == "" {
		attrs.Referrer = DirectReferrer
	}

	// Referral ids are numeric; anything else is ignored rather than
	// propagated as garbage.
	if ref := params.first(referralAliases); ref != "" {
		if n, err := strconv.Atoi(ref); err == nil && n > 0 {
			attrs.ReferredBy = n
		}
	}

	return attrs, nil
}

// paramSet is a case-insensitive view of URL query parameters. For
// repeated parameters the first occurrence wins.
type paramSet map[string]string

// newParamSet lowers all keys. When two spellings collapse to the same
// key ("Email" and "email"), the one already present is kept, which
// matches first-occurrence-wins for repeated parameters.
func newParamSet(values url.Values) paramSet {
	p := make(paramSet, len(values))
	for key, vals := range values {
		lower := strings.ToLower(key)
		if _, exists := p[lower]; exists {
			continue
		}
		for _, v := range vals {
			if strings.TrimSpace(v) != "" {
				p[lower] = strings.TrimSpace(v)
				break
			}
		}
	}
	return p
}

// first returns the value of the first alias with a non-blank value.
func (p paramSet) first(aliases []string) string {
	for _, alias := range aliases {
		if v, ok := p[alias]; ok && v != "" {
			return v
		}
	}
	return ""
}

// normalizeLanguage canonicalizes a client language tag ("en-us" →
// "en-US"). Unparseable tags are passed through untouched so the raw
// value is still recorded.
func normalizeLanguage(lang string) string {
	if lang == "" {
		return ""
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return lang
	}
	return tag.String()
}

package mpesa

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	nonPhoneChars  = regexp.MustCompile(`[^0-9+]`)
	localMobile    = regexp.MustCompile(`^7\d{8}$`)
	canonicalPhone = regexp.MustCompile(`^254\d{9}$`)
)

// NormalizePhone converts a Kenyan mobile number to the 2547XXXXXXXX form Daraja expects.
func NormalizePhone(raw string) (string, error) {
	p := nonPhoneChars.ReplaceAllString(raw, "")
	p = strings.TrimPrefix(p, "+")

	switch {
	case strings.HasPrefix(p, "0"):
		p = "254" + p[1:]
	case localMobile.MatchString(p):
		p = "254" + p
	}

	if !canonicalPhone.MatchString(p) {
		return "", ErrInvalidPhone
	}
	return p, nil
}

// ValidateCallbackURL requires an absolute https URL; Daraja rejects anything else.
func ValidateCallbackURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return ErrInvalidCallbackConfiguration
	}
	return nil
}

package auth

import (
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// MFAKey is a freshly generated TOTP secret and its provisioning URL.
type MFAKey struct {
	Secret string `json:"secret"`
	URL    string `json:"otpauthUrl"`
}

func GenerateMFAKey(issuer, account string) (MFAKey, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
		Period:      30,
		Digits:      otp.DigitsSix,
	})
	if err != nil {
		return MFAKey{}, err
	}
	return MFAKey{Secret: key.Secret(), URL: key.URL()}, nil
}

func ValidateMFACode(code, secret string) bool {
	if code == "" || secret == "" {
		return false
	}
	return totp.Validate(code, secret)
}

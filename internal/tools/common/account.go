package common

import (
	"github.com/teemow/meetslots/internal/google"
)

// GetAccountFromArgs returns the "account" argument, or the default account
// when it is missing, empty or not a string.
func GetAccountFromArgs(args map[string]interface{}) string {
	if accountVal, ok := args["account"].(string); ok && accountVal != "" {
		return accountVal
	}
	return google.DefaultAccount
}

// ValidAccountFromArgs is GetAccountFromArgs plus account name validation.
func ValidAccountFromArgs(args map[string]interface{}) (string, error) {
	account := GetAccountFromArgs(args)
	if err := google.ValidateAccountName(account); err != nil {
		return "", err
	}
	return account, nil
}

//go:build !devotp

package otp

// Issued codes are never logged in regular builds. The devotp build tag
// swaps in a logging variant for local development.
func logIssuedCode(phone, code string) {}

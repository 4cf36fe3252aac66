//go:build devotp

package otp

import (
	"go.uber.org/zap"

	"hfl-auth/internal/util"
)

// Compiled in only under the devotp tag so the code can never leak into a
// production binary through a misconfigured environment variable.
func logIssuedCode(phone, code string) {
	util.Warn("DEV BUILD: issued OTP code",
		zap.String("phone", phone),
		zap.String("code", code))
}

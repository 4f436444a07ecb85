package observe

import "regexp"

var (
	rePassword = regexp.MustCompile(`(?i)(password=)([^\s;&]+)`)
	reURIPass  = regexp.MustCompile(`(?i)(://)([^:/@\s]+):([^@\s]+)(@)`)
	reMySQLDSN = regexp.MustCompile(`^([^:/@\s]+):([^@\s]+)(@tcp\()`)
)

// Mask hides credentials in connection strings and driver messages before
// they are logged or returned to a caller.
func Mask(s string) string {
	out := rePassword.ReplaceAllString(s, "$1***")
	out = reURIPass.ReplaceAllString(out, "$1$2:***$4")
	out = reMySQLDSN.ReplaceAllString(out, "$1:***$3")
	return out
}

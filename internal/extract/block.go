package extract

import "strings"

// Block reasons reported by DetectBlock.
const (
	BlockCaptcha      = "captcha"
	BlockAuthWall     = "auth_wall"
	BlockAccessDenied = "access_denied"
	BlockJSRequired   = "js_required"
)

var blockSignals = []struct {
	reason  string
	phrases []string
}{
	{BlockCaptcha, []string{"captcha"}},
	{BlockAuthWall, []string{"subscribe", "sign in", "log in"}},
	{BlockAccessDenied, []string{"access denied", "forbidden"}},
	{BlockJSRequired, []string{"enable javascript"}},
}

// DetectBlock scans extracted text for soft-block phrases and returns the
// first matching reason in priority order, or "" when the page looks usable.
// The scan is a plain substring match, so ordinary pages mentioning "log in"
// are classified as auth walls too.
func DetectBlock(text string) string {
	lower := strings.ToLower(text)
	for _, s := range blockSignals {
		for _, p := range s.phrases {
			if strings.Contains(lower, p) {
				return s.reason
			}
		}
	}
	return ""
}

package log

import (
	"net/url"
	"regexp"
	"strings"
)

// sensitiveParams are query parameter names whose values are masked.
// Names are compared in lower case; any name containing one of
// sensitiveKeywords is masked as well.
var sensitiveParams = map[string]bool{
	"key":          true,
	"apikey":       true,
	"api_key":      true,
	"sig":          true,
	"signature":    true,
	"code":         true,
	"session":      true,
	"sessionid":    true,
	"session_id":   true,
	"sid":          true,
	"jsessionid":   true,
	"access_token": true,
}

// urlInText finds absolute http(s) URLs inside free text such as error
// messages.
var urlInText = regexp.MustCompile(`https?://[^\s"']+`)

func looksLikeURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// RedactURL masks the password of the user info and the values of
// sensitive query parameters. Anything that does not parse is returned
// unchanged.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	changed := false
	if u.User != nil {
		if _, hasPassword := u.User.Password(); hasPassword {
			u.User = url.UserPassword(u.User.Username(), MaskValue)
			changed = true
		}
	}

	if u.RawQuery != "" {
		q := u.Query()
		for name, values := range q {
			if !isSensitiveParam(name) {
				continue
			}
			for i := range values {
				values[i] = MaskValue
			}
			changed = true
		}
		if changed {
			u.RawQuery = q.Encode()
		}
	}

	if !changed {
		return raw
	}
	// Encode escapes the mask; keep it readable in logs.
	return strings.ReplaceAll(u.String(), url.QueryEscape(MaskValue), MaskValue)
}

func isSensitiveParam(name string) bool {
	n := strings.ToLower(name)
	if sensitiveParams[n] {
		return true
	}
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(n, keyword) {
			return true
		}
	}
	return false
}

func redactURLsInText(text string) string {
	return urlInText.ReplaceAllStringFunc(text, RedactURL)
}

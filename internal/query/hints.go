package query

import (
	"regexp"
	"sort"
	"strings"
)

// errorCodePatterns cover the error code shapes seen on consumer devices:
// E1234, E-123, ERR123, ERR-123, hex codes, bare numeric codes, and codes
// following a keyword such as "error:" or "code:".
var errorCodePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:error|exception|fault|failure|alert|warning|code)[\s:]+([A-Za-z0-9\-_]+)\b`),
	regexp.MustCompile(`\b([A-Z][0-9]{3,6})\b`),
	regexp.MustCompile(`\b([A-Z]-[0-9]{2,5})\b`),
	regexp.MustCompile(`\b([A-Z]{2,5}[0-9]{2,5})\b`),
	regexp.MustCompile(`\b([A-Z]{2,5}-[0-9]{2,5})\b`),
	regexp.MustCompile(`\b(0[xX][0-9A-Fa-f]{2,8})\b`),
	regexp.MustCompile(`\b([0-9]{3,6})\b`),
}

// errorCodeStopwords are common words the keyword pattern would otherwise
// capture ("error: the ...").
var errorCodeStopwords = map[string]struct{}{
	"THE": {}, "AND": {}, "FOR": {}, "NOT": {},
}

// ExtractErrorCodes extracts error codes from raw text.
// Codes are uppercased, deduplicated and returned sorted.
func ExtractErrorCodes(text string) []string {
	if text == "" {
		return nil
	}

	seen := make(map[string]struct{})
	for _, pattern := range errorCodePatterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			code := strings.ToUpper(match[1])
			if len(code) < 3 {
				continue
			}
			if _, stop := errorCodeStopwords[code]; stop {
				continue
			}
			seen[code] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil
	}

	codes := make([]string, 0, len(seen))
	for code := range seen {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// deviceKeywords maps device categories to the terms that indicate them.
// Categories follow the seed knowledge base.
var deviceKeywords = []struct {
	category string
	keywords []string
}{
	{"television", []string{"tv", "television", "hdmi", "remote control", "backlight"}},
	{"smartphone", []string{"phone", "smartphone", "iphone", "android", "mobile"}},
	{"smartwatch", []string{"watch", "smartwatch", "wristband", "fitness tracker"}},
	{"iot", []string{"smart bulb", "smart speaker", "smart plug", "thermostat", "doorbell", "smart home"}},
	{"router", []string{"router", "modem", "access point"}},
	{"laptop", []string{"laptop", "notebook", "macbook"}},
}

// inferDeviceCategory returns the first category whose keyword appears in
// the canonical text, or empty if none matches.
func inferDeviceCategory(canonical string) string {
	padded := " " + canonical + " "
	for _, entry := range deviceKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(padded, " "+kw+" ") || strings.Contains(padded, " "+kw+"s ") {
				return entry.category
			}
		}
	}
	return ""
}

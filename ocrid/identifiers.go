package ocrid

import (
	"regexp"
	"strings"
	"unicode"
)

// Identifier map keys.
const (
	KindLicensePlate = "license_plates"
	KindSerialNumber = "serial_numbers"
	KindDocumentID   = "document_ids"
	KindEmail        = "emails"
	KindPhone        = "phones"
)

var (
	// License plates: letter/digit groups with optional separators, e.g.
	// "ABC-1234", "AB 12 CD 3456", "XYZ 789".
	licensePlateRe = regexp.MustCompile(`\b[A-Z]{1,3}[- ]?\d{2,4}(?:-[A-Z]{1,3})?\b|\b[A-Z]{2}-?\d{2}-?[A-Z]{2}-?\d{3,4}\b`)

	// Serial numbers: explicit S/N prefixes plus long mixed alphanumeric
	// runs containing both a letter and a digit.
	serialPrefixRe = regexp.MustCompile(`(?i)\bS/?N[.:#]?\s*([A-Z0-9][A-Z0-9-]{4,})`)
	serialMixedRe  = regexp.MustCompile(`\b[A-Z0-9]{8,}\b`)

	// Document IDs: passport/ID style, one or two letters followed by a
	// long digit run.
	documentIDRe = regexp.MustCompile(`\b[A-Z]{1,2}\d{6,9}\b`)

	emailRe = regexp.MustCompile(`\b[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}\b`)

	phoneRe = regexp.MustCompile(`(\+?\d{1,3}[- .]?)?\(?\d{2,4}\)?[- .]?\d{3}[- .]?\d{2,4}`)
)

// ExtractIdentifiers pulls every structured identifier family out of the
// text. Each family is deduplicated; keys with no hits are omitted.
func ExtractIdentifiers(text string) map[string][]string {
	upper := strings.ToUpper(text)
	out := make(map[string][]string)

	if plates := dedupe(licensePlateRe.FindAllString(upper, -1)); len(plates) > 0 {
		out[KindLicensePlate] = plates
	}

	var serials []string
	for _, m := range serialPrefixRe.FindAllStringSubmatch(upper, -1) {
		serials = append(serials, m[1])
	}
	for _, m := range serialMixedRe.FindAllString(upper, -1) {
		if hasLetterAndDigit(m) {
			serials = append(serials, m)
		}
	}
	if serials = dedupe(serials); len(serials) > 0 {
		out[KindSerialNumber] = serials
	}

	if ids := dedupe(documentIDRe.FindAllString(upper, -1)); len(ids) > 0 {
		out[KindDocumentID] = ids
	}
	if emails := dedupe(emailRe.FindAllString(text, -1)); len(emails) > 0 {
		out[KindEmail] = emails
	}

	var phones []string
	for _, m := range phoneRe.FindAllString(text, -1) {
		if digits := countDigits(m); digits >= 7 && digits <= 15 {
			phones = append(phones, strings.TrimSpace(m))
		}
	}
	if phones = dedupe(phones); len(phones) > 0 {
		out[KindPhone] = phones
	}

	return out
}

// HasStructuredIdentifier reports whether any plate, serial or document id
// pattern matches. These bypass the gibberish checks: a text that carries a
// verifiable identifier is kept even when its prose fails statistics.
func HasStructuredIdentifier(ids map[string][]string) bool {
	return len(ids[KindLicensePlate]) > 0 ||
		len(ids[KindSerialNumber]) > 0 ||
		len(ids[KindDocumentID]) > 0
}

// NormalizeIdentifier strips separators and uppercases so near-exact matches
// compare cleanly.
func NormalizeIdentifier(id string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(id) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func hasLetterAndDigit(s string) bool {
	hasLetter, hasDigit := false, false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
		}
		if unicode.IsDigit(r) {
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

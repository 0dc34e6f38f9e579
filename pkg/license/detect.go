// Package license provides best-effort identification of license texts.
// Detection maps free-form text to an SPDX identifier by matching
// distinctive phrases after whitespace/punctuation normalization; it is
// a pure function with no side effects and may return "" for unknown or
// ambiguous texts.
package license

import (
	"regexp"
	"strings"
)

var spdxTagPattern = regexp.MustCompile(`(?i)SPDX-License-Identifier:\s*([A-Za-z0-9.+-]+)`)

// fingerprint pairs an SPDX identifier with phrases that must all be
// present in the normalized text. Ordered most-specific first so that
// e.g. LGPL wins over GPL and ISC over 0BSD.
type fingerprint struct {
	id      string
	phrases []string
}

var fingerprints = []fingerprint{
	{"Apache-2.0", []string{"apache license", "version 2.0"}},
	{"MPL-2.0", []string{"mozilla public license", "2.0"}},
	{"EPL-2.0", []string{"eclipse public license", "2.0"}},
	{"EPL-1.0", []string{"eclipse public license", "1.0"}},
	{"AGPL-3.0", []string{"gnu affero general public license", "version 3"}},
	{"LGPL-3.0", []string{"gnu lesser general public license", "version 3"}},
	{"LGPL-2.1", []string{"gnu lesser general public license", "version 2.1"}},
	{"GPL-3.0", []string{"gnu general public license", "version 3"}},
	{"GPL-2.0", []string{"gnu general public license", "version 2"}},
	{"BSD-3-Clause", []string{"redistribution and use in source and binary forms", "neither the name"}},
	{"BSD-2-Clause", []string{"redistribution and use in source and binary forms"}},
	{"MIT", []string{"permission is hereby granted, free of charge"}},
	{"ISC", []string{"permission to use, copy, modify, and/or distribute this software", "provided that the above copyright notice"}},
	{"0BSD", []string{"permission to use, copy, modify, and/or distribute this software"}},
	{"Unlicense", []string{"this is free and unencumbered software"}},
}

// Detect returns the SPDX identifier of the license text, or "" when no
// known license is recognized.
func Detect(content []byte) string {
	if len(content) == 0 {
		return ""
	}
	text := string(content)

	if m := spdxTagPattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}

	normalized := normalize(text)
	for _, fp := range fingerprints {
		if matchesAll(normalized, fp.phrases) {
			return fp.id
		}
	}
	return ""
}

func matchesAll(text string, phrases []string) bool {
	for _, phrase := range phrases {
		if !strings.Contains(text, phrase) {
			return false
		}
	}
	return true
}

// normalize lowercases the text and collapses all whitespace runs to a
// single space so phrase matching survives reflowed license files.
func normalize(text string) string {
	lower := strings.ToLower(text)
	return strings.Join(strings.Fields(lower), " ")
}

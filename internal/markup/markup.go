/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package markup translates template placeholder directives and bullet glyphs
// into XML elements (for output) or emphasis markers (for the terminal viewer).
//
// Templates embed two directives between "<<" and ">>":
//
//	<<beginOptional;name=foo>>removable text<<endOptional>>
//	<<var;name=copyright;original=Copyright (c) <year>;match=.{0,1000}>>
//
// Optional delimiters are dropped and the enclosed text kept. Variables become
// <alt name="…" match="…">original</alt>.
package markup

import (
	"regexp"
	"strings"

	"licensexml/internal/lines"
	"licensexml/internal/textlayout"
)

var (
	placeholderRE = regexp.MustCompile(`<<(var|beginOptional|endOptional)`)
	directiveRE   = regexp.MustCompile(`<<(.*?)>>`)
)

// AltElement is the element name used for variable directives.
const AltElement = "alt"

// HasPlaceholder reports whether s contains a placeholder directive.
func HasPlaceholder(s string) bool { return placeholderRE.MatchString(s) }

// Variable is a parsed <<var;…>> directive.
type Variable struct {
	Name     string
	Original string
	Match    string
}

// ParseVariable parses the semicolon separated key=value list that follows "var;".
// Values are split on the first '=' only; unknown keys are ignored.
func ParseVariable(body string) Variable {
	var v Variable
	for _, part := range strings.Split(body, ";") {
		key, value, _ := strings.Cut(part, "=")
		switch strings.TrimSpace(key) {
		case "name":
			v.Name = value
		case "original":
			v.Original = value
		case "match":
			v.Match = value
		}
	}
	return v
}

// Element renders v as an inline alt element.
func (v Variable) Element() string {
	var b strings.Builder
	b.WriteString("<" + AltElement)
	if v.Name != "" {
		b.WriteString(` name="` + EscapeAttribute(v.Name) + `"`)
	}
	if v.Match != "" {
		b.WriteString(` match="` + EscapeAttribute(v.Match) + `"`)
	}
	b.WriteString(">")
	b.WriteString(EscapeContent(v.Original))
	b.WriteString("</" + AltElement + ">")
	return b.String()
}

// Translate rewrites placeholder directives in s. Literal text between
// directives is content-escaped exactly once; the result is trimmed.
// Directives of unknown kind are kept as escaped text.
func Translate(s string) string {
	var b strings.Builder
	last := 0
	for _, loc := range directiveRE.FindAllStringSubmatchIndex(s, -1) {
		b.WriteString(EscapeContent(s[last:loc[0]]))
		body := s[loc[2]:loc[3]]
		switch {
		case strings.HasPrefix(body, "var;"):
			b.WriteString(ParseVariable(strings.TrimPrefix(body, "var;")).Element())
		case strings.HasPrefix(body, "beginOptional"), strings.HasPrefix(body, "endOptional"):
		default:
			b.WriteString(EscapeContent(s[loc[0]:loc[1]]))
		}
		last = loc[1]
	}
	b.WriteString(EscapeContent(s[last:]))
	return strings.TrimSpace(b.String())
}

// Content prepares the text of one record for element content: it trims,
// translates placeholders (or escapes plain text) and optionally bolds the
// leading bullet glyph. It must not be applied to already-built markup.
func Content(text string, bullets bool) string {
	data := strings.TrimSpace(text)
	if HasPlaceholder(data) {
		data = Translate(data)
	} else {
		data = EscapeContent(data)
	}
	if bullets {
		data = HighlightBullets(data, Bold)
	}
	return data
}

// Emphasis is a pair of markers wrapped around highlighted text.
type Emphasis struct {
	Open  string
	Close string
}

var (
	// Bold is used for bullet glyphs in the XML output.
	Bold = Emphasis{Open: "<b>", Close: "</b>"}
	// Inverse is the ANSI SGR reverse-video pair used by the terminal viewer.
	Inverse = Emphasis{Open: textlayout.InverseOn, Close: textlayout.InverseOff}
)

// Wrap surrounds s with the emphasis markers.
func (e Emphasis) Wrap(s string) string { return e.Open + s + e.Close }

// HighlightBullets wraps bullet glyphs found at the start of any line of s.
func HighlightBullets(s string, e Emphasis) string {
	for _, m := range lines.Matchers() {
		s = highlightGlyphs(s, m, e)
	}
	return s
}

func highlightGlyphs(s string, m lines.Matcher, e Emphasis) string {
	locs := m.Pattern.FindAllStringSubmatchIndex(s, -1)
	if len(locs) == 0 {
		return s
	}
	var b strings.Builder
	last := 0
	for _, loc := range locs {
		start, end := loc[4], loc[5]
		glyph := s[start:end]
		if m.SkipGlyph != nil && m.SkipGlyph.MatchString(glyph) {
			continue
		}
		b.WriteString(s[last:start])
		b.WriteString(e.Wrap(glyph))
		last = end
	}
	b.WriteString(s[last:])
	return b.String()
}

// HighlightPlaceholders wraps every <<…>> directive in s.
func HighlightPlaceholders(s string, e Emphasis) string {
	return directiveRE.ReplaceAllStringFunc(s, e.Wrap)
}

// SplitBullet separates a leading bold bullet glyph from the rest of content.
// When content has no bold glyph the bullet is empty.
func SplitBullet(content string) (bullet, rest string) {
	if !strings.HasPrefix(content, Bold.Open) {
		return "", content
	}
	end := strings.Index(content, Bold.Close)
	if end < 0 {
		return "", content
	}
	inner := content[len(Bold.Open):end]
	if strings.Contains(inner, "<") {
		return "", content
	}
	cut := end + len(Bold.Close)
	return content[:cut], content[cut:]
}

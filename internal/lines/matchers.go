/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package lines

import "regexp"

// Matcher recognizes one family of list bullets at the start of a line.
// Pattern must expose three groups: leading indent, the glyph, and the
// whitespace that follows the glyph. Patterns are multi-line so the same
// table can be applied to a single line or to a whole header block.
type Matcher struct {
	Name    string
	Pattern *regexp.Regexp
	// SkipGlyph, when set, rejects a matched glyph.
	SkipGlyph *regexp.Regexp
}

var (
	// a. b) (c) i. ii) IV.
	letterBullets = regexp.MustCompile(`(?m)^(\s*)([^\s\w]?(?:[a-zA-Z]|[MDCLXVImdclxvi]+)[^\s\w])(\s)`)
	// 1. (2) 3) 1.1 1.2.
	numberBullets = regexp.MustCompile(`(?m)^(\s*)([^\s\w]?[0-9]+[^\s\w]|[^\s\w]?[0-9]+(?:\.[0-9]+)[^\s\w]?)(\s)`)
	// * • -
	symbolBullets = regexp.MustCompile(`(?m)^(\s*)([*\x{2022}\-])(\s)`)

	versionGlyph  = regexp.MustCompile(`^[^\s\w]?[vV] ?\.`)
	versionMarker = regexp.MustCompile(`^\s*[vV]\s*\.`)
)

var matchers = []Matcher{
	{Name: "letter", Pattern: letterBullets, SkipGlyph: versionGlyph},
	{Name: "number", Pattern: numberBullets},
	{Name: "symbol", Pattern: symbolBullets},
}

// exclusions veto a line even when a matcher accepts it.
var exclusions = []*regexp.Regexp{versionMarker}

// Matchers returns the bullet matcher table in evaluation order.
func Matchers() []Matcher {
	out := make([]Matcher, len(matchers))
	copy(out, matchers)
	return out
}

// IsBullet reports whether line starts with a list bullet.
// Version markers such as "v. 2.0" are never bullets.
func IsBullet(line string) bool {
	for _, ex := range exclusions {
		if ex.MatchString(line) {
			return false
		}
	}
	for _, m := range matchers {
		if m.Pattern.MatchString(line) {
			return true
		}
	}
	return false
}

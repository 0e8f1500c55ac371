/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"regexp"
	"strings"

	"github.com/mattn/go-runewidth"
)

// DefaultColumn is the wrap budget used when none is given.
const DefaultColumn = 80

var (
	singleTag  = regexp.MustCompile(`^\s*<[^>]+>$`)
	leadingTag = regexp.MustCompile(`^<[^>]+>`)
	altLine    = regexp.MustCompile(`^\s*<alt[\s>]`)
)

// WrapMarkup word-wraps every line of an indented XML document to column
// cells. Lines within budget and lines holding a single tag are left alone.
// Other lines are broken at spaces outside tags; continuation rows keep the
// line's indentation plus the width of its leading tag, so text lines up
// under the element content. Lines starting with <alt get no extra indent.
// A row only exceeds the budget when it holds a single unbreakable token.
func WrapMarkup(doc string, column int) string {
	if column <= 0 {
		column = DefaultColumn
	}
	src := strings.Split(doc, "\n")
	out := make([]string, 0, len(src))
	for _, line := range src {
		out = append(out, wrapLine(line, column)...)
	}
	return strings.Join(out, "\n")
}

func wrapLine(line string, column int) []string {
	if line == "" || runewidth.StringWidth(line) <= column || singleTag.MatchString(line) {
		return []string{line}
	}
	body := strings.TrimLeft(line, " ")
	indent := line[:len(line)-len(body)]
	cont := indent
	if tag := leadingTag.FindString(body); tag != "" && !altLine.MatchString(line) {
		cont += strings.Repeat(" ", runewidth.StringWidth(tag))
	}

	words := tokens(body)
	if len(words) == 0 {
		return []string{line}
	}
	rows := []string{indent + words[0]}
	width := runewidth.StringWidth(rows[0])
	for _, w := range words[1:] {
		ww := runewidth.StringWidth(w)
		if width+1+ww <= column {
			rows[len(rows)-1] += " " + w
			width += 1 + ww
			continue
		}
		rows = append(rows, cont+w)
		width = runewidth.StringWidth(cont) + ww
	}
	return rows
}

// tokens splits s at spaces that are not inside a tag. Runs of spaces
// collapse; a tag is never split.
func tokens(s string) []string {
	var out []string
	var cur strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case r == ' ' && !inTag:
			if cur.Len() > 0 {
				out = append(out, cur.String())
				cur.Reset()
			}
			continue
		}
		cur.WriteRune(r)
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

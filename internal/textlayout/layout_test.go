/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"reflect"
	"strings"
	"testing"
)

func TestParse_InverseRuns(t *testing.T) {
	got := Parse("a " + InverseOn + "b." + InverseOff + " c" + InverseOff + "d")
	want := []Span{{Text: "a "}, {Text: "b.", Inverse: true}, {Text: " cd"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Parse = %+v, want %+v", got, want)
	}
	if spans := Parse(""); len(spans) != 0 {
		t.Fatalf("expected no spans for empty input, got %+v", spans)
	}
}

func TestWidth_CountsCellsNotBytes(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"abc", 3},
		{"漢字", 4},
		{"ü", 1},
		{InverseOn + "a." + InverseOff + " x", 4},
		{"\tx", TabWidth + 1},
	}
	for _, c := range cases {
		if got := Width(c.in); got != c.want {
			t.Fatalf("Width(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestRows_CharacterWrap(t *testing.T) {
	rows := Rows("abcdefghij", 4)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if len(rows[0]) != 4 || len(rows[2]) != 2 {
		t.Fatalf("unexpected row sizes: %d %d", len(rows[0]), len(rows[2]))
	}
	if len(Rows("", 10)) != 1 {
		t.Fatalf("empty text must occupy one row")
	}
	if len(Rows("abcd", 4)) != 1 || len(Rows("abcde", 4)) != 2 {
		t.Fatalf("boundary heights wrong")
	}
}

func TestRows_WideRuneNeverSplit(t *testing.T) {
	rows := Rows("a漢字", 2)
	// "a" then "漢" would straddle; each wide rune gets its own row
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	for i, r := range rows {
		w := 0
		for _, c := range r {
			w += c.Width
		}
		if w > 2 {
			t.Fatalf("row %d is %d cells wide", i, w)
		}
	}
}

func TestRows_KeepsInverseAttribute(t *testing.T) {
	rows := Rows(InverseOn+"1."+InverseOff+" one", 80)
	if len(rows) != 1 {
		t.Fatalf("expected single row")
	}
	r := rows[0]
	if !r[0].Inverse || !r[1].Inverse || r[2].Inverse {
		t.Fatalf("unexpected attributes: %+v", r)
	}
}

func TestCache_ServesSameLayout(t *testing.T) {
	c := NewCache(2)
	a := c.Rows("hello world", 5)
	b := c.Rows("hello world", 5)
	if !reflect.DeepEqual(a, b) || c.Len() != 1 {
		t.Fatalf("expected a cache hit, len=%d", c.Len())
	}
	if len(c.Rows("hello world", 20)) != 1 || c.Len() != 2 {
		t.Fatalf("expected a separate entry per width")
	}
	c.Rows("x", 1)
	if c.Len() != 2 {
		t.Fatalf("cache must stay bounded, len=%d", c.Len())
	}
	c.Purge()
	if c.Len() != 0 {
		t.Fatalf("purge left %d entries", c.Len())
	}
}

func TestWrapMarkup_AlignsUnderLeadingTag(t *testing.T) {
	in := "  <p>aaaa bbbb cccc dddd eeee ffff</p>"
	got := WrapMarkup(in, 30)
	want := "  <p>aaaa bbbb cccc dddd eeee\n     ffff</p>"
	if got != want {
		t.Fatalf("WrapMarkup =\n%s\nwant\n%s", got, want)
	}
}

func TestWrapMarkup_AltLinesNoExtraIndent(t *testing.T) {
	in := `    <alt name="x" match="y">one two three</alt>`
	got := WrapMarkup(in, 20)
	want := "    <alt name=\"x\" match=\"y\">one\n    two three</alt>"
	if got != want {
		t.Fatalf("WrapMarkup =\n%s\nwant\n%s", got, want)
	}
}

func TestWrapMarkup_SingleTagAndShortLinesUntouched(t *testing.T) {
	long := `<spdx name="A rather long license name that overflows" identifier="LONG-1.0">`
	in := "<x>\n" + long + "\n  <p>short</p>\n"
	if got := WrapMarkup(in, 20); got != in {
		t.Fatalf("expected unchanged output, got\n%s", got)
	}
}

func TestWrapMarkup_WideRunes(t *testing.T) {
	got := WrapMarkup("  <p>漢字漢字 漢字漢字</p>", 20)
	want := "  <p>漢字漢字\n     漢字漢字</p>"
	if got != want {
		t.Fatalf("WrapMarkup =\n%s\nwant\n%s", got, want)
	}
}

func TestWrapMarkup_NoOverBudgetRowsUnlessUnbreakable(t *testing.T) {
	doc := strings.Join([]string{
		`<license>`,
		`  <body>`,
		`    <p>Permission is hereby granted, free of charge, to any person obtaining a copy of this software`,
		`      <alt name="copyright" match=".{0,1000}">Copyright (c) &lt;year&gt; &lt;copyright holders&gt;</alt>`,
		`      and associated documentation files (the "Software"), to deal in the Software without restriction</p>`,
		`    <list><item><b>a)</b><p>one two three four five six seven eight nine ten</p></item></list>`,
		`  </body>`,
		`</license>`,
	}, "\n")
	for column := 10; column <= 100; column += 7 {
		for _, row := range strings.Split(WrapMarkup(doc, column), "\n") {
			if Width(row) <= column || singleTag.MatchString(row) {
				continue
			}
			if n := len(tokens(strings.TrimLeft(row, " "))); n != 1 {
				t.Fatalf("column %d: row %q over budget with %d tokens", column, row, n)
			}
		}
	}
}

func TestTokens_TagsAreAtomic(t *testing.T) {
	got := tokens(`<alt name="a b" match="c d">x y</alt>  z`)
	want := []string{`<alt name="a b" match="c d">x`, `y</alt>`, `z`}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tokens = %q, want %q", got, want)
	}
}

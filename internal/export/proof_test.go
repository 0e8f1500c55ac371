/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"licensexml/internal/domain"
	"licensexml/internal/serialize"
)

func TestProofCreatesPDF(t *testing.T) {
	dir := t.TempDir()
	rec := domain.LicenseRecord{Name: "Zlib Licénse", Identifier: "Zlib", Type: domain.TypeLicense}
	sections := []domain.Section{
		{Category: domain.CategoryTitle, Fragment: "<p>zlib License</p>"},
		{Category: domain.CategoryCopyright, Fragment: `<p>(C) <alt name="year" match=".+">1995-2017</alt></p>`},
		{Category: domain.CategoryBody, Fragment: "<p>Permission is granted</p><list><li><b>1.</b><p>one</p></li></list>"},
		{Category: domain.CategoryOptional, Fragment: "<p>Jean-loup Gailly</p>"},
	}
	out, err := ProofPDF{Dir: dir}.Proof(rec, sections, true)
	if err != nil {
		t.Fatalf("Proof: %v", err)
	}
	if out != filepath.Join(dir, "licenses", "Zlib.pdf") {
		t.Fatalf("unexpected path %s", out)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.HasPrefix(b, []byte("%PDF-")) {
		t.Fatalf("output is not a PDF")
	}
}

func TestProofRejectsUnknownCategory(t *testing.T) {
	_, err := ProofPDF{Dir: t.TempDir()}.Proof(domain.LicenseRecord{Identifier: "X"}, []domain.Section{{Category: domain.CategoryNone}}, false)
	if !errors.Is(err, serialize.ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
	if _, err := (ProofPDF{}).Proof(domain.LicenseRecord{Identifier: "X"}, nil, false); err == nil {
		t.Fatalf("expected error without dir")
	}
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"paragraphs", "<p>a</p><p>b</p>", "a\nb"},
		{"breaks", "<p>a<br/>b</p>", "a\nb"},
		{"entities", "<p>a &amp; b &lt;c&gt;</p>", "a & b <c>"},
		{"alt keeps content", `<p>(c) <alt name="y" match=".+">year</alt></p>`, "(c) year"},
		{"list", "<p>Intro</p><list><li><b>a.</b><p>first</p></li><li><b>b.</b><p>second</p></li></list>", "Intro\na. first\nb. second"},
		{"nested", "<list><li><b>1.</b><p>x</p><list><li><b>a)</b><p>y</p></li></list></li></list><p>end</p>", "1. x\n    a) y\nend"},
	}
	for _, tt := range tests {
		if got := PlainText(tt.in); got != tt.want {
			t.Fatalf("%s: PlainText = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestProofMetaShowsExceptionExample(t *testing.T) {
	rec := domain.LicenseRecord{Type: domain.TypeException, Identifier: "LLVM-exception", Example: "Apache-2.0 WITH LLVM-exception"}
	got := proofMeta(rec, true)
	want := "Type: exception   Example: Apache-2.0 WITH LLVM-exception   Review requested"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if got := proofMeta(domain.LicenseRecord{Type: domain.TypeLicense}, false); got != "Type: license" {
		t.Fatalf("got %q", got)
	}
}

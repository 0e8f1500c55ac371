package domain

import (
	"encoding/json"
	"testing"
)

func TestLicenseRecordJSONKeepsOSIAbsence(t *testing.T) {
	yes := true
	withOSI := LicenseRecord{Name: "MIT License", Identifier: "MIT", TemplateName: "MIT.txt", OSIApproved: &yes}
	withoutOSI := LicenseRecord{Type: TypeException, Name: "Classpath exception 2.0", Identifier: "Classpath-exception-2.0"}

	b, err := json.Marshal(withoutOSI)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got LicenseRecord
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.OSIApproved != nil {
		t.Fatalf("expected osiApproved to stay absent, got %v", *got.OSIApproved)
	}

	b, err = json.Marshal(withOSI)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got = LicenseRecord{}
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.OSIApproved == nil || !*got.OSIApproved {
		t.Fatalf("expected osiApproved=true, got %+v", got.OSIApproved)
	}
	if got.Template != "" {
		t.Fatalf("template body must not be serialized, got %q", got.Template)
	}
}

func TestParseRecordType(t *testing.T) {
	cases := map[string]RecordType{
		"":           TypeLicense,
		"licenses":   TypeLicense,
		"license":    TypeLicense,
		"exceptions": TypeException,
		"exception":  TypeException,
	}
	for in, want := range cases {
		got, err := ParseRecordType(in)
		if err != nil || got != want {
			t.Fatalf("ParseRecordType(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseRecordType("waivers"); err == nil {
		t.Fatalf("expected error for unknown type")
	}
	if TypeException.Plural() != "exceptions" {
		t.Fatalf("unexpected plural %q", TypeException.Plural())
	}
}

func TestDecisionContentDropsSpacers(t *testing.T) {
	d := Decision{Lines: []LineRecord{
		{Text: "MIT License", Kind: KindParagraph, Category: CategoryTitle},
		{Text: " ", Kind: KindSpacer},
		{Text: "a. one", Kind: KindListItem, Category: CategoryBody},
		{Text: " ", Kind: KindSpacer},
	}}
	got := d.Content()
	if len(got) != 2 {
		t.Fatalf("expected 2 content lines, got %d", len(got))
	}
	for _, l := range got {
		if l.Kind == KindSpacer {
			t.Fatalf("spacer leaked into content: %+v", l)
		}
	}
}

func TestCategoryHelpers(t *testing.T) {
	if CategoryNone.Valid() {
		t.Fatalf("unassigned category must not be valid")
	}
	for _, c := range Categories {
		if !c.Valid() {
			t.Fatalf("%v should be valid", c)
		}
	}
	if CategoryTitle.AllowsLists() || CategoryCopyright.AllowsLists() {
		t.Fatalf("title/copyright must not keep lists")
	}
	if !CategoryBody.AllowsLists() || !CategoryOptional.AllowsLists() {
		t.Fatalf("body/optional must keep lists")
	}
}

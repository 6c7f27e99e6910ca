package parser

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
)

func TestParseFileStateTwoRecords(t *testing.T) {
	in := "Name: a.txt\nState: resident\n\nName: b.txt\nState: migrated\n"
	recs := ParseFileState(in)
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}

	want := []struct{ name, state string }{{" a.txt", " resident"}, {" b.txt", " migrated"}}
	for i, w := range want {
		name, _ := recs[i].Get("name")
		state, _ := recs[i].Get("state")
		if name != w.name || state != w.state {
			t.Fatalf("record %d = {%q, %q}, want {%q, %q}", i, name, state, w.name, w.state)
		}
	}
}

func TestParseFileStateRecordCountMatchesNameMarkers(t *testing.T) {
	for n := 1; n <= 5; n++ {
		var sb strings.Builder
		for i := 0; i < n; i++ {
			fmt.Fprintf(&sb, "Name: /gpfs/f%d\nState: premigrated\nTape 1: T%05d@pool1@lib1\n\n", i, i)
		}
		recs := ParseFileState(sb.String())
		if len(recs) != n {
			t.Fatalf("n=%d: expected %d records, got %d", n, n, len(recs))
		}
		for i, r := range recs {
			name, ok := r.Get("name")
			if !ok || name != fmt.Sprintf(" /gpfs/f%d", i) {
				t.Fatalf("record %d has name %q (present=%v)", i, name, ok)
			}
		}
	}
}

func TestParseFileStateWithoutNameYieldsOneRecord(t *testing.T) {
	cases := []string{"", "\n\n", "State: resident\n", "garbage"}
	for _, in := range cases {
		recs := ParseFileState(in)
		if len(recs) != 1 {
			t.Fatalf("input %q: expected 1 record, got %d", in, len(recs))
		}
		if _, ok := recs[0].Get("name"); ok {
			t.Fatalf("input %q: unexpected name field", in)
		}
	}
}

func TestParseFileStateLineConventions(t *testing.T) {
	in := "Name: /gpfs/x\r\nTape 1: T1@pool1@lib1 (tape state=appendable)\r\nState: migrated\r\nState: resident\r\nnocolon\r\n"
	recs := ParseFileState(in)
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	r := recs[0]

	if v, _ := r.Get("name"); v != " /gpfs/x" {
		t.Fatalf("CR not stripped: %q", v)
	}
	// value stops at the second colon
	if v, _ := r.Get("tape 1"); v != " T1@pool1@lib1 (tape state=appendable)" {
		t.Fatalf("unexpected tape value %q", v)
	}
	if v, _ := r.Get("state"); v != " resident" {
		t.Fatalf("duplicate field should overwrite, got %q", v)
	}
	if v, ok := r.Get("nocolon"); !ok || v != "" {
		t.Fatalf("line without colon: %q %v", v, ok)
	}
	if keys := r.Keys(); keys[0] != "name" || keys[1] != "tape 1" || keys[2] != "state" {
		t.Fatalf("unexpected key order %v", keys)
	}
}

func TestParseFileStateTruncatesAtSecondColon(t *testing.T) {
	recs := ParseFileState("Name: /gpfs/a:b\nModified: 2024-01-01 10:11:12\n")
	if v, _ := recs[0].Get("name"); v != " /gpfs/a" {
		t.Fatalf("expected truncation, got %q", v)
	}
	if v, _ := recs[0].Get("modified"); v != " 2024-01-01 10" {
		t.Fatalf("expected truncation, got %q", v)
	}
}

func TestParseFileStateJSONOrder(t *testing.T) {
	recs := ParseFileState("Name: a\nState: resident\nID: 1\n")
	b, err := json.Marshal(recs)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `[{"name":" a","state":" resident","id":" 1"}]` {
		t.Fatalf("unexpected json %s", b)
	}
}

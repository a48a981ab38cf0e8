package models

import (
	"testing"
)

func checklist(statuses ...EvidenceStatus) []EvidenceItem {
	items := make([]EvidenceItem, 0, len(statuses))
	for i, s := range statuses {
		items = append(items, EvidenceItem{
			ID:         string(rune('a' + i)),
			Title:      "item",
			Status:     s,
			Importance: ImportanceMedium,
		})
	}
	return items
}

func TestCompletionPercent(t *testing.T) {
	cases := []struct {
		name  string
		items []EvidenceItem
		want  int
	}{
		{"empty", nil, 0},
		{"all pending", checklist(EvidencePending, EvidencePending), 0},
		{"all collected", checklist(EvidenceCollected, EvidenceCollected), 100},
		{"one of three", checklist(EvidenceCollected, EvidencePending, EvidencePending), 33},
		{"two of three", checklist(EvidenceCollected, EvidenceCollected, EvidencePending), 67},
		{"half", checklist(EvidenceCollected, EvidencePending), 50},
	}
	for _, c := range cases {
		if got := CompletionPercent(c.items); got != c.want {
			t.Fatalf("%s: CompletionPercent = %d, want %d", c.name, got, c.want)
		}
	}
}

func TestToggleEvidenceDoubleToggleRestores(t *testing.T) {
	items := checklist(EvidencePending, EvidenceCollected, EvidencePending)

	if !ToggleEvidence(items, "a") {
		t.Fatalf("expected toggle to find item a")
	}
	if items[0].Status != EvidenceCollected {
		t.Fatalf("expected collected after toggle, got %s", items[0].Status)
	}
	if items[1].Status != EvidenceCollected || items[2].Status != EvidencePending {
		t.Fatalf("toggle touched other items")
	}

	if !ToggleEvidence(items, "a") {
		t.Fatalf("expected second toggle to find item a")
	}
	if items[0].Status != EvidencePending {
		t.Fatalf("expected pending after double toggle, got %s", items[0].Status)
	}
}

func TestToggleEvidenceUnknownIDIsNoop(t *testing.T) {
	items := checklist(EvidencePending, EvidenceCollected)
	if ToggleEvidence(items, "zzz") {
		t.Fatalf("expected no match for unknown id")
	}
	if items[0].Status != EvidencePending || items[1].Status != EvidenceCollected {
		t.Fatalf("no-op toggle changed the collection")
	}
}

func TestJSONBListsRoundTrip(t *testing.T) {
	entities := EntityList{
		{Type: EntityDate, Value: "2024-03-15", Context: "data da demissao"},
		{Type: EntityName, Value: "Empresa XYZ", Context: "empregadora"},
	}
	raw, err := entities.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	var back EntityList
	if err := back.Scan(raw); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(back) != 2 || back[0] != entities[0] || back[1] != entities[1] {
		t.Fatalf("entity round trip mismatch: %+v", back)
	}

	links := LinkList{{Fact: "demissao", Evidence: "carta", Strength: LinkStrong}}
	raw, err = links.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	var backLinks LinkList
	if err := backLinks.Scan(string(raw.([]byte))); err != nil {
		t.Fatalf("scan string form: %v", err)
	}
	if len(backLinks) != 1 || backLinks[0] != links[0] {
		t.Fatalf("link round trip mismatch: %+v", backLinks)
	}

	timeline := StringList{"evento 1", "evento 2"}
	raw, err = timeline.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	var backTimeline StringList
	if err := backTimeline.Scan(raw); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(backTimeline) != 2 || backTimeline[0] != "evento 1" || backTimeline[1] != "evento 2" {
		t.Fatalf("timeline round trip mismatch: %+v", backTimeline)
	}
}

func TestScanNilAndEmptyLeaveDestinationAlone(t *testing.T) {
	var l StringList
	if err := l.Scan(nil); err != nil {
		t.Fatalf("scan nil: %v", err)
	}
	if l != nil {
		t.Fatalf("expected nil list after nil scan")
	}
	if err := l.Scan([]byte{}); err != nil {
		t.Fatalf("scan empty: %v", err)
	}
}

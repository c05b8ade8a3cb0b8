package extraction_test

import (
	"testing"

	"wizqueue/internal/extraction"
)

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []extraction.Product
	}{
		{
			name: "fenced json",
			raw:  "```json\n[{\"productName\":\"Widget\",\"quantity\":3}]\n```",
			want: []extraction.Product{{ProductName: "Widget", Details: "", Quantity: 3}},
		},
		{
			name: "bare fence with prose",
			raw:  "Here you go:\n```\n[{\"productName\":\" Bolt \",\"details\":\" M3 \",\"quantity\":2}]\n```\nThanks!",
			want: []extraction.Product{{ProductName: "Bolt", Details: "M3", Quantity: 2}},
		},
		{
			name: "prose only",
			raw:  "I could not find any products on this page.",
			want: []extraction.Product{},
		},
		{
			name: "empty array",
			raw:  "[]",
			want: []extraction.Product{},
		},
		{
			name: "invalid json span",
			raw:  "[productName: Widget]",
			want: []extraction.Product{},
		},
		{
			name: "invalid elements dropped",
			raw:  `[{"productName":""},{"details":"no name"},"text",42,{"productName":7},{"productName":"Keep"}]`,
			want: []extraction.Product{{ProductName: "Keep", Details: "", Quantity: 1}},
		},
		{
			name: "numeric quantities rounded",
			raw:  `[{"productName":"C","quantity":0},{"productName":"D","quantity":2.6},{"productName":"E","quantity":-3},{"productName":"G"}]`,
			want: []extraction.Product{
				{ProductName: "C", Quantity: 1},
				{ProductName: "D", Quantity: 3},
				{ProductName: "E", Quantity: 1},
				{ProductName: "G", Quantity: 1},
			},
		},
		{
			name: "non-numeric quantity drops element",
			raw:  `[{"productName":"A","quantity":"4"},{"productName":"B","quantity":null},{"productName":"C","quantity":true},{"productName":"D"},{"productName":"F","quantity":"lots"}]`,
			want: []extraction.Product{{ProductName: "D", Quantity: 1}},
		},
		{
			name: "details stringified",
			raw:  `[{"productName":"A","details":12.5},{"productName":"B","details":null},{"productName":"C","details":false}]`,
			want: []extraction.Product{
				{ProductName: "A", Details: "12.5", Quantity: 1},
				{ProductName: "B", Details: "", Quantity: 1},
				{ProductName: "C", Details: "", Quantity: 1},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := extraction.ParseResponse(tc.raw)
			if got == nil {
				t.Fatal("expected non-nil slice")
			}
			if len(got) != len(tc.want) {
				t.Fatalf("got %d products %+v, want %+v", len(got), got, tc.want)
			}
			for i := range tc.want {
				if got[i] != tc.want[i] {
					t.Fatalf("product %d = %+v, want %+v", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestDeduplicate(t *testing.T) {
	got := extraction.Deduplicate([]extraction.Product{
		{ProductName: "Bolt", Details: "M3", Quantity: 2},
		{ProductName: "Nut", Details: "", Quantity: 1},
		{ProductName: "bolt", Details: "m3", Quantity: 5},
		{ProductName: "Bolt", Details: "M4", Quantity: 1},
		{ProductName: "NUT", Details: "", Quantity: 4},
	})
	want := []extraction.Product{
		{ProductName: "Bolt", Details: "M3", Quantity: 7},
		{ProductName: "Nut", Details: "", Quantity: 5},
		{ProductName: "Bolt", Details: "M4", Quantity: 1},
	}
	if len(got) != len(want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("product %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestDeduplicateSeparatorDoesNotCollide(t *testing.T) {
	got := extraction.Deduplicate([]extraction.Product{
		{ProductName: "a|b", Details: "c", Quantity: 1},
		{ProductName: "a", Details: "b|c", Quantity: 1},
	})
	if len(got) != 2 {
		t.Fatalf("expected distinct products, got %+v", got)
	}
}

func TestDeduplicateUnicodeCase(t *testing.T) {
	got := extraction.Deduplicate([]extraction.Product{
		{ProductName: "ÉCOLE Sign", Quantity: 1},
		{ProductName: "école sign", Quantity: 2},
	})
	if len(got) != 1 || got[0].Quantity != 3 || got[0].ProductName != "ÉCOLE Sign" {
		t.Fatalf("expected case-insensitive merge, got %+v", got)
	}
}

func TestDeduplicateLowercasesWithoutFolding(t *testing.T) {
	got := extraction.Deduplicate([]extraction.Product{
		{ProductName: "Straße Sign", Quantity: 1},
		{ProductName: "STRASSE SIGN", Quantity: 2},
		{ProductName: "straße sign", Quantity: 4},
	})
	if len(got) != 2 {
		t.Fatalf("expected two products, got %+v", got)
	}
	if got[0].ProductName != "Straße Sign" || got[0].Quantity != 5 {
		t.Fatalf("first product = %+v", got[0])
	}
	if got[1].ProductName != "STRASSE SIGN" || got[1].Quantity != 2 {
		t.Fatalf("second product = %+v", got[1])
	}
}

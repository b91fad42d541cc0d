// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package usage

import (
	"path/filepath"
	"testing"
)

func testLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "usage.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestRecordAndTotals(t *testing.T) {
	l := testLedger(t)

	records := []struct {
		session string
		model   string
		tokens  int
	}{
		{"s1", "gpt120b", 100},
		{"s1", "gpt120b", 50},
		{"s1", "mistral-small", 30},
		{"s2", "gpt120b", 20},
	}
	for _, r := range records {
		if err := l.Record(r.session, r.model, r.tokens); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	totals, err := l.Totals()
	if err != nil {
		t.Fatalf("Totals: %v", err)
	}
	if len(totals) != 2 {
		t.Fatalf("totals = %d models, want 2", len(totals))
	}
	// sorted by consumption, largest first
	if totals[0].Model != "gpt120b" || totals[0].Tokens != 170 || totals[0].Turns != 3 {
		t.Errorf("gpt120b total = %+v", totals[0])
	}
	if totals[1].Model != "mistral-small" || totals[1].Tokens != 30 {
		t.Errorf("mistral total = %+v", totals[1])
	}

	grand, err := l.TotalAll()
	if err != nil {
		t.Fatalf("TotalAll: %v", err)
	}
	if grand != 200 {
		t.Errorf("grand total = %d, want 200", grand)
	}
}

func TestTotalAll_Empty(t *testing.T) {
	l := testLedger(t)
	grand, err := l.TotalAll()
	if err != nil {
		t.Fatalf("TotalAll: %v", err)
	}
	if grand != 0 {
		t.Errorf("grand total = %d, want 0", grand)
	}
}

func TestOpen_ReopenKeepsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage.db")
	l, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Record("s1", "gpt120b", 42); err != nil {
		t.Fatal(err)
	}
	l.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	grand, err := reopened.TotalAll()
	if err != nil {
		t.Fatal(err)
	}
	if grand != 42 {
		t.Errorf("grand total after reopen = %d, want 42", grand)
	}
}

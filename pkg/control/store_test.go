package control

import (
	"testing"
)

func TestUpsertApp_FreshDocument(t *testing.T) {
	doc, err := upsertApp("", 5445, AppConfig{
		Filters:   []string{"ERROR"},
		Appenders: []string{"file"},
	})
	if err != nil {
		t.Fatalf("upsertApp failed: %v", err)
	}

	cfg, ok := appFromDocument(doc, 5445)
	if !ok {
		t.Fatal("entry not found after upsert")
	}
	if len(cfg.Filters) != 1 || cfg.Filters[0] != "ERROR" {
		t.Errorf("Filters = %v, want [ERROR]", cfg.Filters)
	}
	if len(cfg.Appenders) != 1 || cfg.Appenders[0] != "file" {
		t.Errorf("Appenders = %v, want [file]", cfg.Appenders)
	}
}

func TestUpsertApp_PreservesOtherApps(t *testing.T) {
	doc, err := upsertApp("", 1, AppConfig{Filters: []string{"DEBUG"}})
	if err != nil {
		t.Fatal(err)
	}
	doc, err = upsertApp(doc, 2, AppConfig{Filters: []string{"WARN"}})
	if err != nil {
		t.Fatal(err)
	}

	// Replacing app 1 must not disturb app 2.
	doc, err = upsertApp(doc, 1, AppConfig{Filters: []string{"FATAL"}})
	if err != nil {
		t.Fatal(err)
	}

	one, ok := appFromDocument(doc, 1)
	if !ok || len(one.Filters) != 1 || one.Filters[0] != "FATAL" {
		t.Errorf("app 1 = %v, ok=%v, want [FATAL]", one.Filters, ok)
	}
	two, ok := appFromDocument(doc, 2)
	if !ok || len(two.Filters) != 1 || two.Filters[0] != "WARN" {
		t.Errorf("app 2 = %v, ok=%v, want [WARN]", two.Filters, ok)
	}
}

func TestUpsertApp_CorruptDocument(t *testing.T) {
	if _, err := upsertApp("{not json", 1, AppConfig{}); err == nil {
		t.Error("expected error for a corrupt document")
	}
}

func TestAppFromDocument_Missing(t *testing.T) {
	if _, ok := appFromDocument("{}", 99); ok {
		t.Error("expected ok=false for an absent application")
	}
	if _, ok := appFromDocument("", 99); ok {
		t.Error("expected ok=false for an empty document")
	}
}

func TestAppKey(t *testing.T) {
	if got := appKey(5445); got != "app_5445" {
		t.Errorf("appKey = %q, want app_5445", got)
	}
}

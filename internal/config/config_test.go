package config

import "testing"

func TestLoadRequiresRegion(t *testing.T) {
	t.Setenv("REGION", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when REGION is unset")
	}
}

func TestLoadRejectsUnknownRegion(t *testing.T) {
	t.Setenv("REGION", "brazil")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for region outside the configured pair")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("REGION", "china")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Region != "china" {
		t.Errorf("Region = %q", cfg.Region)
	}
	if cfg.Peer() != "india" {
		t.Errorf("Peer = %q", cfg.Peer())
	}
	if cfg.DBPort != "5432" {
		t.Errorf("DBPort = %q", cfg.DBPort)
	}
	if cfg.GroupID != "china-sync-group" {
		t.Errorf("GroupID = %q", cfg.GroupID)
	}
	if cfg.ClientID == "" {
		t.Error("ClientID should have a generated default")
	}
}

func TestLoadCustomPair(t *testing.T) {
	t.Setenv("REGIONS", "east, west")
	t.Setenv("REGION", "west")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Peer() != "east" {
		t.Errorf("Peer = %q", cfg.Peer())
	}
}

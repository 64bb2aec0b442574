package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveRegionID_Precedence(t *testing.T) {
	dir := t.TempDir()
	if got, err := resolveRegionID(dir, " flag ", "tune"); err != nil || got != "flag" {
		t.Fatalf("flag: got %q err=%v", got, err)
	}
	if got, err := resolveRegionID(dir, "", "tune"); err != nil || got != "tune" {
		t.Fatalf("tuning: got %q err=%v", got, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "region_id")); !os.IsNotExist(err) {
		t.Fatalf("explicit ids must not be persisted: %v", err)
	}
}

func TestResolveRegionID_PersistsGenerated(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	first, err := resolveRegionID(dir, "", "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !strings.HasPrefix(first, "region_") || len(first) != len("region_")+12 {
		t.Fatalf("unexpected generated id %q", first)
	}
	second, err := resolveRegionID(dir, "", "")
	if err != nil {
		t.Fatalf("resolve again: %v", err)
	}
	if second != first {
		t.Fatalf("id not stable across restarts: %q vs %q", first, second)
	}
}

func TestIsLoopbackRemote(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:5000": true,
		"[::1]:80":       true,
		"10.0.0.2:1234":  false,
		"not-an-ip":      false,
	}
	for in, want := range cases {
		if got := isLoopbackRemote(in); got != want {
			t.Fatalf("isLoopbackRemote(%q)=%v want %v", in, got, want)
		}
	}
}

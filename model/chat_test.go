package model

import (
	"testing"

	"github.com/google/uuid"
)

func TestProjectIDSetScanValue(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	set := ProjectIDSet{a, b}

	value, err := set.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}

	var loaded ProjectIDSet
	if err := loaded.Scan(value); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if len(loaded) != 2 || loaded[0] != a || loaded[1] != b {
		t.Errorf("round trip lost ids: %v", loaded)
	}
}

func TestProjectIDSetEmptyAndNil(t *testing.T) {
	value, err := ProjectIDSet{}.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}
	if string(value.([]byte)) != "[]" {
		t.Errorf("empty set should serialize to [], got %s", value)
	}

	var loaded ProjectIDSet
	if err := loaded.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) failed: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("nil column should load as empty set, got %v", loaded)
	}
}

func TestProjectIDSetContains(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	set := ProjectIDSet{a}

	if !set.Contains(a) {
		t.Error("set should contain its member")
	}
	if set.Contains(b) {
		t.Error("set should not contain a foreign id")
	}
}

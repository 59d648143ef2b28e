package cache

import "testing"

func baseMeta() Meta {
	return Meta{
		Mode:        "interp",
		PackageName: "main",
		EntryName:   "ForgeMain",
		Imports:     []string{"fmt"},
		Source:      "package main\n",
	}
}

func TestKey_Deterministic(t *testing.T) {
	k1, err := Key(baseMeta())
	if err != nil {
		t.Fatalf("Key failed: %v", err)
	}
	k2, err := Key(baseMeta())
	if err != nil {
		t.Fatalf("Key failed: %v", err)
	}
	if k1 != k2 {
		t.Errorf("identical metadata produced different keys: %s vs %s", k1, k2)
	}
	if len(k1) != 64 {
		t.Errorf("key length = %d, want 64 hex chars", len(k1))
	}
}

func TestKey_SensitiveToEveryField(t *testing.T) {
	base, _ := Key(baseMeta())

	mutations := map[string]func(*Meta){
		"mode":    func(m *Meta) { m.Mode = "plugin" },
		"package": func(m *Meta) { m.PackageName = "scratch" },
		"entry":   func(m *Meta) { m.EntryName = "Run" },
		"imports": func(m *Meta) { m.Imports = []string{"strings"} },
		"source":  func(m *Meta) { m.Source = "package main // changed\n" },
		"requires": func(m *Meta) {
			m.Requires = map[string]string{"github.com/google/uuid": "v1.6.0"}
		},
	}

	for name, mutate := range mutations {
		m := baseMeta()
		mutate(&m)
		k, err := Key(m)
		if err != nil {
			t.Fatalf("%s: Key failed: %v", name, err)
		}
		if k == base {
			t.Errorf("%s: mutation did not change the key", name)
		}
	}
}

func TestMetaRoundTrip(t *testing.T) {
	m := baseMeta()
	m.Requires = map[string]string{"example.com/x": "v0.1.0"}

	data, err := MarshalMeta(m)
	if err != nil {
		t.Fatalf("MarshalMeta failed: %v", err)
	}
	got, err := UnmarshalMeta(data)
	if err != nil {
		t.Fatalf("UnmarshalMeta failed: %v", err)
	}
	if got.Mode != m.Mode || got.Source != m.Source || got.EntryName != m.EntryName {
		t.Errorf("round trip mismatch: %+v vs %+v", got, m)
	}
	if got.Requires["example.com/x"] != "v0.1.0" {
		t.Errorf("requires lost in round trip: %+v", got.Requires)
	}
}

package schema

import "testing"

func TestSchemaForBuiltinHTTP(t *testing.T) {
	r := NewRegistry()

	s := r.SchemaFor("http")
	if len(s.Fields) != 3 {
		t.Fatalf("unexpected http fields: %+v", s.Fields)
	}
	if s.Defaults["method"] != "GET" || s.Defaults["timeout"] != 5 || s.Defaults["expected_status"] != 200 {
		t.Fatalf("unexpected http defaults: %+v", s.Defaults)
	}
}

func TestSchemaForUnknownTypeIsEmpty(t *testing.T) {
	r := NewRegistry()

	s := r.SchemaFor("grpc")
	if len(s.Fields) != 0 || len(s.Defaults) != 0 {
		t.Fatalf("expected empty schema for unknown type, got %+v", s)
	}
}

func TestSchemaForReturnsCopies(t *testing.T) {
	r := NewRegistry()

	s := r.SchemaFor("ping")
	s.Defaults["count"] = 99

	if r.SchemaFor("ping").Defaults["count"] != 4 {
		t.Fatalf("registry defaults must not be mutable through SchemaFor")
	}
}

func TestApplyDefaultsSeedsMissingKeysOnly(t *testing.T) {
	r := NewRegistry()

	out := r.ApplyDefaults("http", map[string]any{
		"timeout":  30,
		"x_custom": "kept",
	})

	if out["method"] != "GET" {
		t.Fatalf("expected default method seeded, got %+v", out)
	}
	if out["timeout"] != 30 {
		t.Fatalf("expected caller timeout preserved, got %+v", out)
	}
	if out["x_custom"] != "kept" {
		t.Fatalf("expected unknown key preserved, got %+v", out)
	}
}

func TestApplyDefaultsNilSettings(t *testing.T) {
	r := NewRegistry()

	out := r.ApplyDefaults("http", nil)
	defaults := r.SchemaFor("http").Defaults
	if len(out) != len(defaults) {
		t.Fatalf("expected pure defaults, got %+v", out)
	}
	for k, v := range defaults {
		if out[k] != v {
			t.Fatalf("default %q mismatch: %v != %v", k, out[k], v)
		}
	}
}

func TestDecodeTaggedVariants(t *testing.T) {
	decoded, err := Decode("http", map[string]any{"method": "POST", "timeout": 10, "expected_status": 201})
	if err != nil {
		t.Fatalf("Decode http: %v", err)
	}
	httpSettings, ok := decoded.(HTTPSettings)
	if !ok {
		t.Fatalf("expected HTTPSettings, got %T", decoded)
	}
	if httpSettings.Method != "POST" || httpSettings.ExpectedStatus != 201 {
		t.Fatalf("unexpected http settings: %+v", httpSettings)
	}

	decoded, err = Decode("ping", map[string]any{"count": 8, "timeout": 2})
	if err != nil {
		t.Fatalf("Decode ping: %v", err)
	}
	if ping, ok := decoded.(PingSettings); !ok || ping.Count != 8 {
		t.Fatalf("unexpected ping settings: %+v", decoded)
	}

	decoded, err = Decode("grpc", map[string]any{"service": "api.Health"})
	if err != nil {
		t.Fatalf("Decode unknown: %v", err)
	}
	raw, ok := decoded.(RawSettings)
	if !ok {
		t.Fatalf("expected RawSettings, got %T", decoded)
	}
	if raw.Tag != "grpc" || raw.Values["service"] != "api.Health" {
		t.Fatalf("unexpected raw settings: %+v", raw)
	}
}

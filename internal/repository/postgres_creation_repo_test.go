package repository

import (
	"testing"
)

func TestPostgresCreationRepo_ImplementsInterface(t *testing.T) {
	var _ CreationRepository = (*PostgresCreationRepo)(nil)
}

func TestPostgresPromptRepo_ImplementsInterface(t *testing.T) {
	var _ PromptRepository = (*PostgresPromptRepo)(nil)
}

// nilポインタがNULLとして保存され、NULLがnilポインタとして読み戻されることを検証
func TestNullStringPtr_RoundTrip(t *testing.T) {
	// nil -> NULL
	ns := nullStringPtr(nil)
	if ns.Valid {
		t.Error("nil pointer should map to NULL")
	}
	if got := ptrFromNullString(ns); got != nil {
		t.Errorf("NULL should map back to nil, got %q", *got)
	}

	// 値あり -> 値あり
	value := "https://example.com/image.png"
	ns = nullStringPtr(&value)
	if !ns.Valid || ns.String != value {
		t.Errorf("nullStringPtr(%q) = %+v", value, ns)
	}
	got := ptrFromNullString(ns)
	if got == nil || *got != value {
		t.Errorf("ptrFromNullString round trip failed, got %v", got)
	}

	// 空文字列はNULLではなく空文字列として保持される
	empty := ""
	ns = nullStringPtr(&empty)
	if !ns.Valid {
		t.Error("empty string should not collapse to NULL")
	}
}

// nilメタデータが空オブジェクトとして保存されることを検証
func TestMarshalMetadata_NilBecomesEmptyObject(t *testing.T) {
	b, err := marshalMetadata(nil)
	if err != nil {
		t.Fatalf("marshalMetadata(nil) error = %v", err)
	}
	if string(b) != "{}" {
		t.Errorf("marshalMetadata(nil) = %q, want %q", string(b), "{}")
	}
}

func TestUnmarshalMetadata_EmptyColumnBecomesEmptyMap(t *testing.T) {
	m, err := unmarshalMetadata(nil)
	if err != nil {
		t.Fatalf("unmarshalMetadata(nil) error = %v", err)
	}
	if m == nil {
		t.Fatal("expected non-nil map")
	}
	if len(m) != 0 {
		t.Errorf("expected empty map, got %v", m)
	}
}

func TestUnmarshalMetadata_ParsesJSONB(t *testing.T) {
	m, err := unmarshalMetadata([]byte(`{"style":"水彩","steps":4}`))
	if err != nil {
		t.Fatalf("unmarshalMetadata() error = %v", err)
	}
	if m["style"] != "水彩" {
		t.Errorf("style = %v, want 水彩", m["style"])
	}
}

func TestUnmarshalMetadata_InvalidJSON_ReturnsError(t *testing.T) {
	if _, err := unmarshalMetadata([]byte(`{broken`)); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

package parser

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/langcards/internal/apperr"
	"github.com/starford/langcards/internal/models"
)

func TestParse_CanonicalKeys(t *testing.T) {
	data := []byte(`[
		{"name":"Go","description":"Compiled, concurrent","creationInfo":"2009","link":"https://go.dev"},
		{"name":"Rust","description":"Safe systems","creationInfo":"2010","link":"https://rust-lang.org"}
	]`)
	cat, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := models.Catalog{
		{Name: "Go", Description: "Compiled, concurrent", CreationInfo: "2009", Link: "https://go.dev"},
		{Name: "Rust", Description: "Safe systems", CreationInfo: "2010", Link: "https://rust-lang.org"},
	}
	if diff := cmp.Diff(want, cat); diff != "" {
		t.Errorf("catalog mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_LegacyKeys(t *testing.T) {
	data := []byte(`[{"nome":"Python","descricao":"Interpretada","data_criacao":"1991","link":"https://python.org"}]`)
	cat, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got := cat[0]
	if got.Name != "Python" || got.Description != "Interpretada" || got.CreationInfo != "1991" {
		t.Errorf("legacy keys not mapped: %+v", got)
	}
}

func TestParse_CanonicalWinsOverLegacy(t *testing.T) {
	cat, err := Parse([]byte(`[{"nome":"Antigo","name":"Novo"}]`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cat[0].Name != "Novo" {
		t.Errorf("name = %q, want Novo", cat[0].Name)
	}
}

func TestParse_NumericCreationInfo(t *testing.T) {
	cat, err := Parse([]byte(`[{"name":"C","ano":1972}]`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cat[0].CreationInfo != "1972" {
		t.Errorf("creationInfo = %q, want 1972", cat[0].CreationInfo)
	}
}

func TestParse_MissingFieldsAreEmpty(t *testing.T) {
	cat, err := Parse([]byte(`[{"name":"Lonely"},{"name":null}]`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cat[0].Description != "" || cat[0].Link != "" {
		t.Errorf("absent fields should be empty: %+v", cat[0])
	}
	if cat[1].Name != "" {
		t.Errorf("null name should be empty, got %q", cat[1].Name)
	}
}

func TestParse_DuplicatesKept(t *testing.T) {
	cat, err := Parse([]byte(`[{"name":"Go"},{"name":"Go"}]`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cat) != 2 {
		t.Errorf("duplicates dropped: len = %d", len(cat))
	}
}

func TestParse_EmptyArray(t *testing.T) {
	cat, err := Parse([]byte(" [] "))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cat) != 0 {
		t.Errorf("len = %d, want 0", len(cat))
	}
}

func TestParse_Malformed(t *testing.T) {
	cases := map[string]string{
		"not json":       `{{{`,
		"object":         `{"name":"Go"}`,
		"null":           `null`,
		"empty":          ``,
		"null element":   `[null]`,
		"number element": `[1]`,
		"object field":   `[{"name":{"x":1}}]`,
		"truncated":      `[{"name":"Go"`,
	}
	for name, data := range cases {
		_, err := Parse([]byte(data))
		if err == nil {
			t.Errorf("%s: expected error", name)
			continue
		}
		if !errors.Is(err, apperr.ErrResourceParse) {
			t.Errorf("%s: error %v does not wrap ErrResourceParse", name, err)
		}
	}
}

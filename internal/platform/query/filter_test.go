package query

import (
	"reflect"
	"testing"
)

func TestBuilder_NoFilters(t *testing.T) {
	b := NewBuilder("drug_records", "id, first_name")
	b.Apply(nil)
	b.OrderBy("created_at DESC")

	want := "SELECT id, first_name, COUNT(*) OVER() AS total_count FROM drug_records WHERE 1=1 ORDER BY created_at DESC LIMIT $1 OFFSET $2"
	if got := b.SQL(); got != want {
		t.Errorf("SQL mismatch:\n got %s\nwant %s", got, want)
	}
	if got := b.Args(10, 0); !reflect.DeepEqual(got, []interface{}{10, 0}) {
		t.Errorf("expected only limit/offset args, got %v", got)
	}
}

func TestBuilder_EmptyValuesAddNoClause(t *testing.T) {
	b := NewBuilder("drug_records", "id")
	b.Apply([]Filter{
		{Column: "province", Op: OpEq, Value: ""},
		{Column: "first_name", Op: OpLike, Value: ""},
		{Columns: []string{"first_name", "last_name"}, Op: OpLikeAny, Value: ""},
		{Column: "age", Op: OpBetween, Value: 10, Upper: nil},
		{Column: "drug_types", Op: OpJSONAny, Values: nil},
	})

	want := "SELECT id, COUNT(*) OVER() AS total_count FROM drug_records WHERE 1=1 LIMIT $1 OFFSET $2"
	if got := b.SQL(); got != want {
		t.Errorf("expected unfiltered query, got %s", got)
	}
}

func TestBuilder_LikeAnySharesOnePlaceholder(t *testing.T) {
	b := NewBuilder("drug_records", "id")
	b.Apply([]Filter{
		{Columns: []string{"first_name", "last_name", "nickname"}, Op: OpLikeAny, Value: "som"},
		{Column: "id_card", Op: OpEq, Value: "1234567890123"},
	})

	want := "SELECT id, COUNT(*) OVER() AS total_count FROM drug_records WHERE 1=1" +
		" AND (first_name ILIKE $1 OR last_name ILIKE $1 OR nickname ILIKE $1)" +
		" AND id_card = $2 LIMIT $3 OFFSET $4"
	if got := b.SQL(); got != want {
		t.Errorf("SQL mismatch:\n got %s\nwant %s", got, want)
	}

	args := b.Args(20, 40)
	wantArgs := []interface{}{"%som%", "1234567890123", 20, 40}
	if !reflect.DeepEqual(args, wantArgs) {
		t.Errorf("args mismatch: got %v want %v", args, wantArgs)
	}
}

func TestBuilder_BetweenBindsTwoArgs(t *testing.T) {
	b := NewBuilder("drug_records", "id")
	b.Apply([]Filter{
		{Column: "age", Op: OpBetween, Value: 18, Upper: 30},
		{Column: "status", Op: OpEq, Value: "active"},
	})

	want := "SELECT id, COUNT(*) OVER() AS total_count FROM drug_records WHERE 1=1" +
		" AND age BETWEEN $1 AND $2 AND status = $3 LIMIT $4 OFFSET $5"
	if got := b.SQL(); got != want {
		t.Errorf("SQL mismatch:\n got %s\nwant %s", got, want)
	}
}

func TestBuilder_JSONAnyIsORd(t *testing.T) {
	b := NewBuilder("drug_records", "id")
	b.Apply([]Filter{
		{Column: "drug_types", Op: OpJSONAny, Values: []string{"a", "b"}},
		{Column: "province", Op: OpEq, Value: "Roi Et"},
	})

	want := "SELECT id, COUNT(*) OVER() AS total_count FROM drug_records WHERE 1=1" +
		" AND (jsonb_exists(drug_types, $1) OR jsonb_exists(drug_types, $2))" +
		" AND province = $3 LIMIT $4 OFFSET $5"
	if got := b.SQL(); got != want {
		t.Errorf("SQL mismatch:\n got %s\nwant %s", got, want)
	}

	args := b.Args(10, 0)
	wantArgs := []interface{}{"a", "b", "Roi Et", 10, 0}
	if !reflect.DeepEqual(args, wantArgs) {
		t.Errorf("args mismatch: got %v want %v", args, wantArgs)
	}
}

func TestBuilder_BooleanEquality(t *testing.T) {
	b := NewBuilder("drug_records", "id")
	b.Apply([]Filter{{Column: "has_used_drugs", Op: OpEq, Value: true}})

	want := "SELECT id, COUNT(*) OVER() AS total_count FROM drug_records WHERE 1=1" +
		" AND has_used_drugs = $1 LIMIT $2 OFFSET $3"
	if got := b.SQL(); got != want {
		t.Errorf("SQL mismatch:\n got %s\nwant %s", got, want)
	}
}

package model

import (
	"encoding/json"
	"testing"
)

// 省略されたキーは更新対象外、nullはクリア、値ありは更新として区別できることを検証する。
func TestField_UnmarshalJSON_DistinguishesAbsentNullAndValue(t *testing.T) {
	var p ClientPatch
	if err := json.Unmarshal([]byte(`{"name":"X","api_key":null}`), &p); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if !p.Name.Set || p.Name.Null || p.Name.Value != "X" {
		t.Errorf("Name = %+v, want set to X", p.Name)
	}
	if !p.APIKey.Set || !p.APIKey.Null {
		t.Errorf("APIKey = %+v, want set to null", p.APIKey)
	}
	if p.RUC.Set {
		t.Errorf("RUC should not be set when key is absent: %+v", p.RUC)
	}
	if p.ContactEmail.Set {
		t.Errorf("ContactEmail should not be set when key is absent: %+v", p.ContactEmail)
	}
	if p.Active.Set {
		t.Errorf("Active should not be set when key is absent: %+v", p.Active)
	}
}

func TestField_UnmarshalJSON_TypeMismatch(t *testing.T) {
	var p TableXClientPatch
	if err := json.Unmarshal([]byte(`{"idClient":"abc"}`), &p); err == nil {
		t.Fatal("expected error for non-numeric idClient")
	}
}

func TestField_Ptr(t *testing.T) {
	if SetNull[string]().Ptr() != nil {
		t.Error("Ptr() of null field should be nil")
	}

	p := SetTo("hello").Ptr()
	if p == nil || *p != "hello" {
		t.Errorf("Ptr() = %v, want pointer to hello", p)
	}
}

func TestPatch_IsEmpty(t *testing.T) {
	if !(ClientPatch{}).IsEmpty() {
		t.Error("zero ClientPatch should be empty")
	}
	if (ClientPatch{Name: SetTo("X")}).IsEmpty() {
		t.Error("ClientPatch with name should not be empty")
	}
	if !(UserPatch{}).IsEmpty() {
		t.Error("zero UserPatch should be empty")
	}
	if (UserPatch{Active: SetTo(false)}).IsEmpty() {
		t.Error("UserPatch with swt=false should not be empty")
	}
}

func TestChatDetailType_Valid(t *testing.T) {
	for _, typ := range []ChatDetailType{ChatDetailTypeUser, ChatDetailTypeSystem, ChatDetailTypeBot} {
		if !typ.Valid() {
			t.Errorf("%q should be valid", typ)
		}
	}
	if ChatDetailType("assistant").Valid() {
		t.Error("assistant should not be valid")
	}
}

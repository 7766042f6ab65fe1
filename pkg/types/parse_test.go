package types

import "testing"

func TestParseJSONPreservesKeyOrder(t *testing.T) {
	v, err := ParseJSON(`{"zeta": 1, "alpha": {"y": 1, "x": 2}, "mid": 3}`)
	if err != nil {
		t.Fatal(err)
	}
	if v.Tag != TypeObj {
		t.Fatalf("parsed tag = %s, want object", v.Tag)
	}
	keys := v.Obj.Keys()
	want := []string{"zeta", "alpha", "mid"}
	for i, k := range want {
		if keys[i] != k {
			t.Fatalf("Keys() = %v, want %v", keys, want)
		}
	}
	inner, _ := v.Obj.Get("alpha")
	if inner.Obj.Keys()[0] != "y" {
		t.Errorf("nested keys = %v", inner.Obj.Keys())
	}
}

func TestParseJSONNumberTags(t *testing.T) {
	tests := []struct {
		text string
		tag  Dtype
	}{
		{"3", TypeInt},
		{"-3", TypeInt},
		{"3.0", TypeFloat},
		{"3e2", TypeFloat},
		{"0.5", TypeFloat},
		{"9223372036854775807", TypeInt},
		{"92233720368547758080", TypeFloat}, // beyond int64
	}
	for _, tt := range tests {
		v, err := ParseJSON(tt.text)
		if err != nil {
			t.Fatalf("ParseJSON(%q): %v", tt.text, err)
		}
		if v.Tag != tt.tag {
			t.Errorf("ParseJSON(%q).Tag = %s, want %s", tt.text, v.Tag, tt.tag)
		}
	}
}

func TestParseJSONScalars(t *testing.T) {
	for text, check := range map[string]func(*Value) bool{
		"null":      func(v *Value) bool { return v.Tag == TypeNull },
		"true":      func(v *Value) bool { return v.Tag == TypeBool && v.Bool },
		"false":     func(v *Value) bool { return v.Tag == TypeBool && !v.Bool },
		"\"a`\"": func(v *Value) bool { return v.Tag == TypeStr && v.Str == "a`" },
	} {
		v, err := ParseJSON(text)
		if err != nil {
			t.Fatalf("ParseJSON(%q): %v", text, err)
		}
		if !check(v) {
			t.Errorf("ParseJSON(%q) = %s", text, v)
		}
	}
}

func TestParseJSONInvalid(t *testing.T) {
	for _, text := range []string{"", "{", `{"a":}`, "[1,]"} {
		if _, err := ParseJSON(text); err == nil {
			t.Errorf("ParseJSON(%q) did not fail", text)
		}
	}
}

func TestStringRoundTrip(t *testing.T) {
	docs := []string{
		"null", "true", "-3", "2.5", `"he said \"hi\""`,
		`{"b": [1, 2.0, null], "a": {}}`,
		"[[], [[1]]]",
	}
	for _, doc := range docs {
		v, err := ParseJSON(doc)
		if err != nil {
			t.Fatalf("ParseJSON(%q): %v", doc, err)
		}
		back, err := ParseJSON(v.String())
		if err != nil {
			t.Fatalf("reparsing %q: %v", v.String(), err)
		}
		if !back.Equal(v) {
			t.Errorf("round trip of %q changed the value: %s", doc, v)
		}
	}
}

func TestStringKeepsFloatMarker(t *testing.T) {
	if got := NewFloat(3).String(); got != "3.0" {
		t.Errorf("NewFloat(3).String() = %q, want 3.0", got)
	}
	if got := NewInt(3).String(); got != "3" {
		t.Errorf("NewInt(3).String() = %q, want 3", got)
	}
}

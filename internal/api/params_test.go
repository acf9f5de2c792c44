package api

import (
	"math"
	"reflect"
	"testing"
	"time"
)

func TestParams_KeepsInsertionOrder(t *testing.T) {
	p := NewParams().Set("z", 1).Set("a", 2).Set("m", 3)
	p.Set("z", 4)

	want := []string{"z", "a", "m"}
	if got := p.Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
	if v, _ := p.Get("z"); v != 4 {
		t.Errorf("Get(z) = %v, want 4", v)
	}
}

func TestParams_NilIsEmpty(t *testing.T) {
	var p *Params
	if p.Len() != 0 {
		t.Errorf("Len() = %d, want 0", p.Len())
	}
	if _, ok := p.Get("x"); ok {
		t.Error("Get on nil params reported a value")
	}
	if got := p.Clone().Len(); got != 0 {
		t.Errorf("Clone().Len() = %d, want 0", got)
	}
	data, err := p.MarshalJSON()
	if err != nil || string(data) != "{}" {
		t.Errorf("MarshalJSON() = %s, %v", data, err)
	}
}

func TestParams_CloneIsIndependent(t *testing.T) {
	orig := NewParams().Set("id", "1").Set("limit", 5)
	clone := orig.Clone()
	clone.Delete("id")
	clone.Set("extra", true)

	if orig.Len() != 2 {
		t.Errorf("original Len() = %d, want 2", orig.Len())
	}
	if _, ok := orig.Get("id"); !ok {
		t.Error("deleting from clone removed key from original")
	}
	if _, ok := orig.Get("extra"); ok {
		t.Error("setting on clone added key to original")
	}
}

func TestParams_UnmarshalJSONKeepsOrder(t *testing.T) {
	var p Params
	if err := p.UnmarshalJSON([]byte(`{"status":"hi","visibility":"public","media_ids":["1","2"]}`)); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}
	want := []string{"status", "visibility", "media_ids"}
	if got := p.Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
	if got := EncodeQuery(&p); got != "status=hi&visibility=public&media_ids[]=1&media_ids[]=2" {
		t.Errorf("EncodeQuery() = %q", got)
	}
}

func TestParams_TakeRetryOptions(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  RetryOptions
	}{
		{"struct", RetryOptions{MaxRetries: 5, RetryDelay: time.Second}, RetryOptions{MaxRetries: 5, RetryDelay: time.Second}},
		{"pointer", &RetryOptions{MaxRetries: 2}, RetryOptions{MaxRetries: 2}},
		{"map in milliseconds", map[string]any{"maxRetries": float64(4), "retryDelay": float64(250)}, RetryOptions{MaxRetries: 4, RetryDelay: 250 * time.Millisecond}},
		{"nil", nil, RetryOptions{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParams().Set("id", "1").Set(MastoOptionsKey, tt.value)
			got, err := p.takeRetryOptions()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("takeRetryOptions() = %+v, want %+v", got, tt.want)
			}
			if _, ok := p.Get(MastoOptionsKey); ok {
				t.Error("options key was not removed")
			}
			if p.Len() != 1 {
				t.Errorf("Len() = %d, want 1", p.Len())
			}
		})
	}
}

func TestParams_TakeRetryOptionsRejectsUnknownType(t *testing.T) {
	p := NewParams().Set(MastoOptionsKey, "fast")
	if _, err := p.takeRetryOptions(); err == nil {
		t.Error("expected error for string options")
	}
}

func TestTruthy(t *testing.T) {
	var nilSlice []string
	tests := []struct {
		value any
		want  bool
	}{
		{nil, false},
		{"", false},
		{"0", true},
		{false, false},
		{true, true},
		{0, false},
		{int64(7), true},
		{uint8(0), false},
		{0.0, false},
		{math.NaN(), false},
		{1.5, true},
		{nilSlice, false},
		{[]string{}, true},
		{File{}, true},
	}
	for _, tt := range tests {
		if got := truthy(tt.value); got != tt.want {
			t.Errorf("truthy(%#v) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		value any
		want  string
	}{
		{"abc", "abc"},
		{true, "true"},
		{42, "42"},
		{int64(-3), "-3"},
		{float64(12), "12"},
		{1.25, "1.25"},
		{uint(9), "9"},
		{time.Second, "1s"},
	}
	for _, tt := range tests {
		if got := formatValue(tt.value); got != tt.want {
			t.Errorf("formatValue(%#v) = %q, want %q", tt.value, got, tt.want)
		}
	}
}

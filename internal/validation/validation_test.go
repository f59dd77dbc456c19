package validation

import (
	"errors"
	"testing"
)

type signUp struct {
	Name     string `json:"name" validate:"notblank"`
	Mail     string `json:"mail" validate:"required,email"`
	Password string `json:"password" validate:"min=6"`
	Rating   int    `json:"rating" validate:"gte=1,lte=5"`
}

func TestStruct_FieldMessages(t *testing.T) {
	err := Struct(signUp{Name: "   ", Mail: "not-a-mail", Password: "123", Rating: 9})

	var verr *Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected *Error, got %v", err)
	}

	want := map[string]string{
		"name":     "is required",
		"mail":     "must be a valid mail address",
		"password": "must be at least 6 characters",
		"rating":   "must be at most 5",
	}
	for field, msg := range want {
		if verr.Fields[field] != msg {
			t.Errorf("field %s: got %q, want %q", field, verr.Fields[field], msg)
		}
	}
}

func TestStruct_Valid(t *testing.T) {
	if err := Struct(signUp{Name: "Ida", Mail: "ida@example.com", Password: "123456", Rating: 5}); err != nil {
		t.Fatalf("expected valid input, got %v", err)
	}
}

func TestError_OrNil(t *testing.T) {
	e := &Error{}
	if e.OrNil() != nil {
		t.Fatal("empty error should be nil")
	}
	e.Add("start", "is required")
	e.Add("start", "ignored")
	if e.OrNil() == nil || e.Fields["start"] != "is required" {
		t.Fatalf("unexpected error state %+v", e.Fields)
	}
	if e.Error() != "validation failed: start is required" {
		t.Fatalf("unexpected message %q", e.Error())
	}
}

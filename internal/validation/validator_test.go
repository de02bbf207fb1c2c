package validation

import (
	"errors"
	"strings"
	"testing"

	"socialmedia_api/internal/model"
)

func TestValidateStruct_CreatePost(t *testing.T) {
	tests := []struct {
		name      string
		req       model.CreatePostRequest
		wantField string
	}{
		{"valid", model.CreatePostRequest{Title: "hello", Content: "world"}, ""},
		{"missing title", model.CreatePostRequest{Content: "world"}, "title"},
		{"title too long", model.CreatePostRequest{Title: strings.Repeat("a", 201), Content: "x"}, "title"},
		{"missing content", model.CreatePostRequest{Title: "hello"}, "content"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.req)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("ValidateStruct() unexpected error = %v", err)
				}
				return
			}

			var ve *RequestValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("ValidateStruct() error = %v, want *RequestValidationError", err)
			}
			if !errors.Is(err, model.ErrValidation) {
				t.Error("validation error should unwrap to model.ErrValidation")
			}
			if ve.Fields[0].Field != tt.wantField {
				t.Errorf("field = %q, want %q", ve.Fields[0].Field, tt.wantField)
			}
		})
	}
}

func TestValidateStruct_Messages(t *testing.T) {
	err := ValidateStruct(&model.RegisterTokenRequest{Token: "abc", Platform: "windows"})
	if err == nil {
		t.Fatal("expected error for unsupported platform")
	}
	if !strings.Contains(err.Error(), "platform must be one of: ios android") {
		t.Errorf("message = %q", err.Error())
	}
}

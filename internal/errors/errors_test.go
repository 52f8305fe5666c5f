package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestWithContext(t *testing.T) {
	err := NotFound("matrix upload", "u1").WithContext("upload_id", "u1").WithContext("attempt", 2)
	if err.Context["upload_id"] != "u1" || err.Context["attempt"] != 2 {
		t.Errorf("context = %v", err.Context)
	}
	if err.Error() != "[NOT_FOUND] matrix upload not found: u1" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestIsTypeThroughWrapping(t *testing.T) {
	cause := errors.New("disk full")
	err := fmt.Errorf("save: %w", Storage("write setting", cause))

	tests := []struct {
		name string
		t    Type
		want bool
	}{
		{"matching type", TypeStorage, true},
		{"other type", TypeNotFound, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsType(err, tt.t); got != tt.want {
				t.Errorf("IsType(%s) = %v, want %v", tt.t, got, tt.want)
			}
		})
	}
	if !errors.Is(err, cause) {
		t.Error("cause should be reachable with errors.Is")
	}
	if IsType(cause, TypeStorage) {
		t.Error("plain errors have no type")
	}
}

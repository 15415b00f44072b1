package dto

import (
	"errors"
	"strings"
	"testing"

	"github.com/iho/marketplace/internal/domain"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     any
		wantErr string
	}{
		{
			name: "valid register",
			req:  &RegisterRequest{Username: "alice", Password: "Sup3r$ecret"},
		},
		{
			name:    "short username",
			req:     &RegisterRequest{Username: "al", Password: "Sup3r$ecret"},
			wantErr: "username must be at least 3 characters",
		},
		{
			name:    "missing password",
			req:     &LoginRequest{Username: "alice"},
			wantErr: "password is required",
		},
		{
			name:    "missing product",
			req:     &PurchaseRequest{},
			wantErr: "product_id is required",
		},
		{
			name:    "long product id",
			req:     &PurchaseRequest{ProductID: strings.Repeat("x", 65)},
			wantErr: "product_id must be at most 64 characters",
		},
		{
			name:    "change password fields",
			req:     &ChangePasswordRequest{},
			wantErr: "old_password is required; new_password is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.req)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected %q in %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestToUseCaseInput(t *testing.T) {
	purchase := (&PurchaseRequest{ProductID: " p1 "}).ToUseCaseInput("u1")
	if purchase.UserID != "u1" || purchase.ProductID != "p1" {
		t.Fatalf("unexpected purchase input %+v", purchase)
	}

	change := (&ChangePasswordRequest{OldPassword: "a", NewPassword: "b"}).ToUseCaseInput("u1")
	if change.UserID != "u1" || change.OldPassword != "a" || change.NewPassword != "b" {
		t.Fatalf("unexpected change input %+v", change)
	}

	login := (&LoginRequest{Username: "alice", Password: "pw"}).ToUseCaseInput()
	if login.Username != "alice" || login.Password != "pw" {
		t.Fatalf("unexpected login input %+v", login)
	}
}

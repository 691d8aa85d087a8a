package patient

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/sehatline/sehat_backend/pkg/errs"
)

func strp(s string) *string { return &s }

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "postgres unique violation", err: &pgconn.PgError{Code: "23505"}, want: true},
		{
			name: "wrapped postgres unique violation",
			err:  fmt.Errorf("create patient: %w", &pgconn.PgError{Code: "23505"}),
			want: true,
		},
		{name: "other postgres error", err: &pgconn.PgError{Code: "23503"}, want: false},
		{name: "translated gorm error", err: gorm.ErrDuplicatedKey, want: true},
		{name: "unrelated error", err: errors.New("connection refused"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isUniqueViolation(tt.err); got != tt.want {
				t.Errorf("isUniqueViolation(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name    string
		in      *string
		want    string
		wantNil bool
		wantErr bool
	}{
		{name: "nil stays nil", in: nil, wantNil: true},
		{name: "blank stays nil", in: strp("   "), wantNil: true},
		{name: "e164 passes through", in: strp("+919876543210"), want: "+919876543210"},
		{name: "national format gets country code", in: strp("098765 43210"), want: "+919876543210"},
		{name: "garbage rejected", in: strp("not-a-phone"), wantErr: true},
		{name: "too short rejected", in: strp("+9112"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizePhone(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errs.IsValidation(err) {
					t.Errorf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantNil {
				if got != nil {
					t.Errorf("expected nil, got %q", *got)
				}
				return
			}
			if got == nil || *got != tt.want {
				t.Errorf("got %v, want %q", got, tt.want)
			}
		})
	}
}

package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "native SQLSTATE 23505",
			err:  &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"},
			want: true,
		},
		{
			name: "wrapped SQLSTATE 23505",
			err:  fmt.Errorf("failed to insert BP movement row: %w", &pgconn.PgError{Code: "23505"}),
			want: true,
		},
		{
			name: "other SQLSTATE is not a conflict",
			err:  &pgconn.PgError{Code: "23503", Message: "violates foreign key constraint"},
			want: false,
		},
		{
			name: "message-level duplicate key",
			err:  errors.New("ERROR: duplicate key value violates unique constraint \"movements_production_doc_number_key\""),
			want: true,
		},
		{
			name: "message-level legacy driver phrasing",
			err:  errors.New("violation of PRIMARY or UNIQUE KEY constraint \"PK_MOVEMENTS\""),
			want: true,
		},
		{
			name: "message-level sqlstate 23000",
			err:  errors.New("dynamic SQL error, SQLSTATE = 23000"),
			want: true,
		},
		{
			name: "unrelated error",
			err:  errors.New("connection refused"),
			want: false,
		},
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isUniqueViolation(tt.err); got != tt.want {
				t.Errorf("isUniqueViolation(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsRetryableConflict(t *testing.T) {
	conflict := &ConflictError{Err: errors.New("article code 00000009 was taken by a concurrent insert")}
	if !isRetryableConflict(conflict) {
		t.Error("ConflictError not classified as retryable")
	}
	if !isRetryableConflict(fmt.Errorf("attempt failed: %w", conflict)) {
		t.Error("wrapped ConflictError not classified as retryable")
	}
	if isRetryableConflict(errors.New("connection refused")) {
		t.Error("unrelated error classified as retryable")
	}

	var target *ConflictError
	if !errors.As(conflict, &target) || target.Unwrap() == nil {
		t.Error("ConflictError does not unwrap its cause")
	}
}

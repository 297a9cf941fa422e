package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/decms-project/decms/internal/custody"
)

func TestCustodyStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrap: %w", custody.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", custody.ErrEvidenceNotFound), http.StatusNotFound},
		{fmt.Errorf("wrap: %w", custody.ErrNotCustodian), http.StatusForbidden},
		{fmt.Errorf("wrap: %w", custody.ErrGenesisMissing), http.StatusConflict},
		{fmt.Errorf("wrap: %w", custody.ErrHashCollision), http.StatusConflict},
		{fmt.Errorf("op: %w: %w", custody.ErrStorage, errors.New("conn refused")), http.StatusInternalServerError},
		{errors.New("unclassified"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := custodyStatus(tc.err); got != tc.want {
			t.Errorf("custodyStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestPublicError_masksStorageDetail(t *testing.T) {
	err := fmt.Errorf("insert transfer: %w: %w", custody.ErrStorage, errors.New("dsn=postgres://secret"))
	if msg := publicError(err); msg != "storage failure" {
		t.Errorf("expected masked message, got %q", msg)
	}

	err = fmt.Errorf("%w: case 9 does not exist", custody.ErrValidation)
	if msg := publicError(err); msg == "storage failure" {
		t.Errorf("validation errors should pass through, got %q", msg)
	}
}

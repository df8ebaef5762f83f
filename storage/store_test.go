package storage

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func TestIsDuplicateKey(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505", ConstraintName: "idx_promos_org_code"}
	if !IsDuplicateKey(fmt.Errorf("create promo: %w", unique)) {
		t.Error("wrapped unique violation not recognized")
	}
	if !IsDuplicateKey(gorm.ErrDuplicatedKey) {
		t.Error("translated gorm duplicate not recognized")
	}
	if IsDuplicateKey(&pgconn.PgError{Code: "23503"}) {
		t.Error("foreign-key violation misread as duplicate")
	}
	if IsDuplicateKey(fmt.Errorf("connection reset")) {
		t.Error("plain error misread as duplicate")
	}
}

package repository

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/joseph-ayodele/tradedocs/internal/common"
)

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullablePtr[T ~string](p *T) any {
	if p == nil {
		return nil
	}
	return string(*p)
}

func nullableFloat(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullableInt(p *int) any {
	if p == nil {
		return nil
	}
	return int64(*p)
}

func strPtr[T ~string](ns sql.NullString) *T {
	if !ns.Valid {
		return nil
	}
	v := T(ns.String)
	return &v
}

func floatPtr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	v := nf.Float64
	return &v
}

func intPtr(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	v := int(ni.Int64)
	return &v
}

// isUniqueViolation matches the constraint errors of both supported drivers.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

func dbError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, common.ErrNotFound) {
		return err
	}
	return common.NewAppError("DB_ERROR", op, errors.Join(common.ErrDatabase, err))
}

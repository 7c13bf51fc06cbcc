package database

import (
	stderrors "errors"

	"github.com/cvintake/cvintake-backend/pkg/errors"
	"github.com/lib/pq"
)

// MapPQError converts a PostgreSQL constraint error to an AppError.
// Returns nil if the error is not a recognised pq.Error.
func MapPQError(err error) *errors.AppError {
	var pqErr *pq.Error
	if !stderrors.As(err, &pqErr) {
		return nil
	}

	switch pqErr.Code {
	case "23505": // unique_violation
		return errors.BadRequest("record already exists").WithCause(err)
	case "23502": // not_null_violation
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Validation(map[string]string{col: "must not be empty"})
	case "22001": // string_data_right_truncation
		col := pqErr.Column
		if col == "" {
			col = "value"
		}
		return errors.Validation(map[string]string{col: "too long"})
	case "23514": // check_violation
		return errors.Validation(map[string]string{constraintField(pqErr.Constraint): "invalid value"})
	default:
		return nil
	}
}

// constraintField maps "<table>_<column>_check" to the column name.
func constraintField(constraint string) string {
	switch constraint {
	case "submissions_status_check":
		return "status"
	case "submissions_format_check":
		return "format"
	case "":
		return "constraint"
	default:
		return constraint
	}
}

package gear

import (
	"errors"

	"gearguard.io/internal/apperr"
)

var conflictMessages = map[string]string{
	FieldEmail:        "Email already registered",
	FieldSerialNumber: "Serial number already exists",
	FieldMembership:   "User is already a member of this team",
	FieldRequests:     "Equipment still has maintenance requests",
}

// classify turns a store error into a client-facing apperr.
func classify(err error, notFound string) error {
	if err == nil {
		return nil
	}
	if _, ok := apperr.As(err); ok {
		return err
	}
	var ce *ConflictError
	switch {
	case errors.Is(err, ErrNotFound):
		return apperr.Wrap(apperr.NotFound, notFound, err)
	case errors.As(err, &ce):
		msg, ok := conflictMessages[ce.Field]
		if !ok {
			msg = "Record already exists"
		}
		return apperr.Wrap(apperr.Conflict, msg, err)
	case errors.Is(err, ErrConflict):
		return apperr.Wrap(apperr.Conflict, "Record already exists", err)
	case errors.Is(err, ErrInvalidReference):
		return apperr.Wrap(apperr.Validation, "Referenced record does not exist", err)
	}
	return apperr.Wrap(apperr.Internal, "Internal server error", err)
}

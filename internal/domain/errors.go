package domain

import "fmt"

// ValidationError represents malformed or missing input. Maps to 400.
type ValidationError struct {
	Message string
}

func (e ValidationError) Error() string {
	if e.Message == "" {
		return "invalid request"
	}
	return e.Message
}

// Is enables errors.Is matching on ValidationError.
func (e ValidationError) Is(target error) bool {
	_, ok := target.(ValidationError)
	if ok {
		return true
	}
	_, ok = target.(*ValidationError)
	return ok
}

// NotFoundError represents a missing resource. Maps to 404.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// OwnershipError represents a mutation referencing items that do not
// belong to the target album. Maps to 403 and rejects the whole batch.
type OwnershipError struct {
	Message string
}

func (e OwnershipError) Error() string {
	if e.Message == "" {
		return "ownership mismatch"
	}
	return e.Message
}

// Is enables errors.Is matching on OwnershipError.
func (e OwnershipError) Is(target error) bool {
	_, ok := target.(OwnershipError)
	if ok {
		return true
	}
	_, ok = target.(*OwnershipError)
	return ok
}

var (
	ErrValidation = ValidationError{}
	ErrNotFound   = NotFoundError{}
	ErrOwnership  = OwnershipError{}
)

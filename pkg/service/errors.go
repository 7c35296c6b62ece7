package service

import "errors"

var (
	// ErrMissingIdentifier is returned when neither a template id nor a system
	// name was supplied.
	ErrMissingIdentifier = errors.New("service: template_id or system_name is required")
	// ErrMissingOwner is returned when the owner id is empty.
	ErrMissingOwner = errors.New("service: owner_id is required")
	// ErrInvalidFieldsPayload is returned when the fields payload is absent,
	// not an object, empty, or holds values outside the payload model.
	ErrInvalidFieldsPayload = errors.New("service: fields must be a non-empty object")
)

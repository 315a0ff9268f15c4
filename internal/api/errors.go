package api

import (
	"errors"
	"fmt"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrUnauthenticated = errors.New("not authenticated")
)

// ValidationError reports an invalid input field. It matches ErrValidation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid returns a ValidationError for field.
func Invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NewValidationError wraps ve in a Connect error with the given code and
// attaches the field as a structured detail so clients can rebuild it.
func NewValidationError(code connect.Code, ve *ValidationError) *connect.Error {
	cerr := connect.NewError(code, ve)
	msg, err := structpb.NewStruct(map[string]any{
		"field":   ve.Field,
		"message": ve.Message,
	})
	if err != nil {
		return cerr
	}
	if detail, err := connect.NewErrorDetail(msg); err == nil {
		cerr.AddDetail(detail)
	}
	return cerr
}

// FromConnectError maps a Connect error returned by a call to the package
// sentinels. The Connect error stays in the chain.
func FromConnectError(err error) error {
	var cerr *connect.Error
	if !errors.As(err, &cerr) {
		return err
	}
	switch cerr.Code() {
	case connect.CodeInvalidArgument, connect.CodeAlreadyExists, connect.CodeFailedPrecondition:
		if ve := validationDetail(cerr); ve != nil {
			return ve
		}
		return fmt.Errorf("%w: %w", ErrValidation, cerr)
	case connect.CodeNotFound:
		return fmt.Errorf("%w: %w", ErrNotFound, cerr)
	case connect.CodeUnauthenticated, connect.CodePermissionDenied:
		return fmt.Errorf("%w: %w", ErrUnauthenticated, cerr)
	default:
		return err
	}
}

func validationDetail(cerr *connect.Error) *ValidationError {
	for _, d := range cerr.Details() {
		msg, err := d.Value()
		if err != nil {
			continue
		}
		s, ok := msg.(*structpb.Struct)
		if !ok {
			continue
		}
		fields := s.GetFields()
		return &ValidationError{
			Field:   fields["field"].GetStringValue(),
			Message: fields["message"].GetStringValue(),
		}
	}
	return nil
}

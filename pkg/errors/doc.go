// Package errors provides structured error handling with error codes for simple-auth.
//
// Services create errors with typed codes; HTTP handlers map them to status codes
// via HTTPStatusCode. Security-sensitive codes (INVALID_CREDENTIALS, TWO_FA_INVALID,
// INVALID_OR_EXPIRED_CODE) carry deliberately generic messages so that nothing about
// account existence or failure cause leaks to the caller.
//
// Creating errors:
//
//	err := errors.New(errors.ErrCodeAccountNotFound, "account not found")
//	err := errors.Wrap(dbErr, errors.ErrCodeInternal, "failed to query account")
//
// Inspecting errors:
//
//	if errors.IsCode(err, errors.ErrCodeEmailAlreadyExists) {
//		// 409
//	}
package errors

// Package validator provides struct validation for Rolodex request inputs.
//
// It wraps go-playground/validator so handlers get field names as they appear
// in JSON and messages a client can show directly:
//
//	if err := validator.Validate(input); err != nil {
//	    // err is a validator.ValidationErrors
//	}
//
// The notblank tag rejects strings that are empty after trimming whitespace.
package validator

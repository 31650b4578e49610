// Package errors provides structured error types for the asset cache.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the resource type name, id and label involved, plus a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseSweep, errors.KindDisconnected).
//		TypeName("*image.RGBA").
//		Detail("mailbox receiver reported no senders").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Disconnected(errors.PhaseHandle, "sprite", 7, cause)
//	err := errors.IO("read asset", "/assets/ui/font.ttf", cause)
//
// Lookups never produce errors; a missing id, label or type is reported
// through a boolean.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors

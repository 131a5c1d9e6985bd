// Package recycling holds the submission validator and the verification
// engine. Manual admin actions and the auto-approval scheduler both go
// through the same Engine so their side effects cannot diverge.
package recycling

import "errors"

// ErrForbidden is returned when the acting principal's role does not permit
// the operation.
var ErrForbidden = errors.New("operation not permitted for this role")

// ImageStore abstracts the upload storage collaborator.
type ImageStore interface {
	Save(data []byte, origName string) (string, error)
	Delete(ref string) error
}

// Publisher is the outbound notification bus. Publishing is best-effort: a
// failure never affects the outcome of the triggering operation.
type Publisher interface {
	Publish(message []byte) error
}

package client

import (
	"errors"

	"github.com/cmsweb/cmaclient/client/internal/entity"
	cmaerrors "github.com/cmsweb/cmaclient/client/internal/errors"
	"github.com/cmsweb/cmaclient/client/internal/linkresolver"
	"github.com/cmsweb/cmaclient/client/internal/request"
	"github.com/cmsweb/cmaclient/client/internal/resources"
)

var (
	// ErrBackPressure is returned when the client's internal shard queue is full.
	ErrBackPressure = errors.New("back-pressure (queue full)")

	// ErrClosed is returned by async calls after Close.
	ErrClosed = errors.New("client closed")

	ErrMissingBaseURL = errors.New("baseURL cannot be empty")
	ErrMissingToken   = errors.New("access token cannot be empty")
)

// IsBackPressure reports whether err is a back-pressure error.
func IsBackPressure(err error) bool { return errors.Is(err, ErrBackPressure) }

// Re-export internal sentinels so callers compare against a single symbol.
var (
	ErrNoID                 = entity.ErrNoID
	ErrInvalidTransition    = entity.ErrInvalidTransition
	ErrUnsupported          = entity.ErrUnsupported
	ErrDuplicateInstance    = linkresolver.ErrDuplicateInstance
	ErrResponseNotAvailable = request.ErrResponseNotAvailable
	ErrAssetNotProcessed    = resources.ErrAssetNotProcessed
)

// APIError is the error document the server returns with a failed request.
type APIError = cmaerrors.APIError

// IsVersionConflict reports whether err is a 409 optimistic-locking failure.
func IsVersionConflict(err error) bool { return cmaerrors.IsVersionConflict(err) }

// IsNotFound reports whether err is a 404.
func IsNotFound(err error) bool { return cmaerrors.IsNotFound(err) }

// IsIrrecoverable reports whether retrying the failed request cannot help.
func IsIrrecoverable(err error) bool { return cmaerrors.IsIrrecoverable(err) }

// StatusCode returns the HTTP status of a failed request, or 0.
func StatusCode(err error) int { return cmaerrors.StatusCode(err) }

package runtime

import (
	"context"
	"errors"

	"github.com/FrodoOf9Fingers/Quarry/internal/protocol"
	"github.com/FrodoOf9Fingers/Quarry/internal/sim/placement"
	"github.com/FrodoOf9Fingers/Quarry/internal/sim/region"
)

// ErrorCode maps a request error to a protocol error code.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, placement.ErrQuarryExists), errors.Is(err, region.ErrOccupied):
		return protocol.ErrConflict
	case errors.Is(err, region.ErrOutOfBounds), errors.Is(err, region.ErrUnknownDef):
		return protocol.ErrBadRequest
	case errors.Is(err, placement.ErrNoQuarry), errors.Is(err, placement.ErrNotFound):
		return protocol.ErrNotFound
	case errors.Is(err, ErrNotRunning), errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return protocol.ErrBusy
	default:
		return protocol.ErrInternal
	}
}

package draftrpc

import (
	"errors"

	"connectrpc.com/connect"
	"github.com/mcdev12/livedraft/go/internal/draft/drafterrors"
)

// KindHeader carries the drafterrors.Kind across the RPC boundary.
const KindHeader = "Draft-Error-Kind"

// ToConnect converts an engine error into a connect error, keeping its kind.
func ToConnect(err error) error {
	if err == nil {
		return nil
	}
	kind := drafterrors.KindOf(err)
	cerr := connect.NewError(codeFor(kind), err)
	cerr.Meta().Set(KindHeader, string(kind))
	return cerr
}

// FromConnect restores the engine error from a connect error returned to a
// client. Transport failures become DEPENDENCY_UNAVAILABLE.
func FromConnect(err error) error {
	if err == nil {
		return nil
	}
	var cerr *connect.Error
	if !errors.As(err, &cerr) {
		return drafterrors.Unavailable(err, "draft rpc failed")
	}
	kind := drafterrors.Kind(cerr.Meta().Get(KindHeader))
	if kind == "" {
		switch cerr.Code() {
		case connect.CodeUnavailable, connect.CodeDeadlineExceeded, connect.CodeCanceled, connect.CodeUnknown:
			return drafterrors.Unavailable(err, "draft rpc failed")
		}
		kind = drafterrors.KindInternal
	}
	return drafterrors.New(kind, "%s", cerr.Message())
}

func codeFor(kind drafterrors.Kind) connect.Code {
	switch kind {
	case drafterrors.KindNotFound:
		return connect.CodeNotFound
	case drafterrors.KindLockContention:
		return connect.CodeAborted
	case drafterrors.KindVersionConflict:
		return connect.CodeAborted
	case drafterrors.KindWrongTurn, drafterrors.KindDeadlinePassed,
		drafterrors.KindInvalidState, drafterrors.KindPlayerAlreadyDrafted:
		return connect.CodeFailedPrecondition
	case drafterrors.KindNoPlayersAvailable:
		return connect.CodeResourceExhausted
	case drafterrors.KindDependencyUnavailable:
		return connect.CodeUnavailable
	case drafterrors.KindInvalidArgument:
		return connect.CodeInvalidArgument
	default:
		return connect.CodeInternal
	}
}

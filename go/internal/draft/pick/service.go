package pick

import (
	"context"

	"connectrpc.com/connect"
	"github.com/mcdev12/livedraft/go/internal/draft/draftrpc"
	"github.com/mcdev12/livedraft/go/internal/draft/state"
	"github.com/mcdev12/livedraft/go/internal/models"
)

// PickApp defines what the service layer needs from the pick application
type PickApp interface {
	MakePick(ctx context.Context, req MakePickRequest) (*models.DraftState, error)
	AutoPick(ctx context.Context, draftID string) (*AutoPickResult, error)
	FetchNextDeadline(ctx context.Context) (*state.NextDeadline, error)
	FetchDraftsDueForPick(ctx context.Context, limit int, exclude []string) ([]string, error)
}

// Service implements the PickService RPC interface
type Service struct {
	app PickApp
}

// NewService creates a new pick RPC service
func NewService(app PickApp) *Service {
	return &Service{app: app}
}

// Verify that Service implements the PickServiceHandler interface
var _ draftrpc.PickServiceHandler = (*Service)(nil)

func (s *Service) MakePick(ctx context.Context, req *connect.Request[draftrpc.MakePickRequest]) (*connect.Response[draftrpc.DraftStateResponse], error) {
	next, err := s.app.MakePick(ctx, MakePickRequest{
		DraftID:        req.Msg.DraftID,
		TeamID:         req.Msg.TeamID,
		PlayerID:       req.Msg.PlayerID,
		Actor:          req.Msg.Actor,
		IdempotencyKey: req.Msg.IdempotencyKey,
	})
	if err != nil {
		return nil, draftrpc.ToConnect(err)
	}
	return connect.NewResponse(&draftrpc.DraftStateResponse{DraftState: next}), nil
}

func (s *Service) AutoPick(ctx context.Context, req *connect.Request[draftrpc.AutoPickRequest]) (*connect.Response[draftrpc.AutoPickResponse], error) {
	result, err := s.app.AutoPick(ctx, req.Msg.DraftID)
	if err != nil {
		return nil, draftrpc.ToConnect(err)
	}
	return connect.NewResponse(&draftrpc.AutoPickResponse{
		DraftState: result.State,
		Skipped:    result.Skipped,
		PlayerID:   result.Selection.PlayerID,
		Tier:       string(result.Selection.Tier),
	}), nil
}

func (s *Service) FetchNextDeadline(ctx context.Context, _ *connect.Request[draftrpc.FetchNextDeadlineRequest]) (*connect.Response[draftrpc.FetchNextDeadlineResponse], error) {
	next, err := s.app.FetchNextDeadline(ctx)
	if err != nil {
		return nil, draftrpc.ToConnect(err)
	}
	resp := &draftrpc.FetchNextDeadlineResponse{}
	if next != nil {
		resp.DraftID = next.DraftID
		resp.Deadline = next.Deadline
	}
	return connect.NewResponse(resp), nil
}

func (s *Service) FetchDraftsDueForPick(ctx context.Context, req *connect.Request[draftrpc.FetchDraftsDueForPickRequest]) (*connect.Response[draftrpc.FetchDraftsDueForPickResponse], error) {
	ids, err := s.app.FetchDraftsDueForPick(ctx, req.Msg.Limit, req.Msg.Exclude)
	if err != nil {
		return nil, draftrpc.ToConnect(err)
	}
	if ids == nil {
		ids = []string{}
	}
	return connect.NewResponse(&draftrpc.FetchDraftsDueForPickResponse{DraftIDs: ids}), nil
}

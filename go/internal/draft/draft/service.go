package draft

import (
	"context"

	"connectrpc.com/connect"
	"github.com/mcdev12/livedraft/go/internal/draft/draftrpc"
	"github.com/mcdev12/livedraft/go/internal/models"
)

// DraftApp defines what the service layer needs from the draft application
type DraftApp interface {
	CreateDraft(ctx context.Context, cfg models.DraftConfig) (*models.DraftState, error)
	StartDraft(ctx context.Context, draftID, actor string) (*models.DraftState, error)
	PauseDraft(ctx context.Context, draftID, actor string) (*models.DraftState, error)
	ResumeDraft(ctx context.Context, draftID, actor string) (*models.DraftState, error)
	GetDraftState(ctx context.Context, draftID string) (*DraftView, error)
	RebuildState(ctx context.Context, draftID string) (*RebuildReport, error)
}

// Service implements the DraftService RPC interface
type Service struct {
	draftApp DraftApp
}

// NewService creates a new draft RPC service
func NewService(draftApp DraftApp) *Service {
	return &Service{draftApp: draftApp}
}

// Verify that Service implements the DraftServiceHandler interface
var _ draftrpc.DraftServiceHandler = (*Service)(nil)

func (s *Service) CreateDraft(ctx context.Context, req *connect.Request[draftrpc.CreateDraftRequest]) (*connect.Response[draftrpc.DraftStateResponse], error) {
	created, err := s.draftApp.CreateDraft(ctx, req.Msg.Config)
	return stateResponse(created, err)
}

func (s *Service) StartDraft(ctx context.Context, req *connect.Request[draftrpc.DraftRequest]) (*connect.Response[draftrpc.DraftStateResponse], error) {
	next, err := s.draftApp.StartDraft(ctx, req.Msg.DraftID, req.Msg.Actor)
	return stateResponse(next, err)
}

func (s *Service) PauseDraft(ctx context.Context, req *connect.Request[draftrpc.DraftRequest]) (*connect.Response[draftrpc.DraftStateResponse], error) {
	next, err := s.draftApp.PauseDraft(ctx, req.Msg.DraftID, req.Msg.Actor)
	return stateResponse(next, err)
}

func (s *Service) ResumeDraft(ctx context.Context, req *connect.Request[draftrpc.DraftRequest]) (*connect.Response[draftrpc.DraftStateResponse], error) {
	next, err := s.draftApp.ResumeDraft(ctx, req.Msg.DraftID, req.Msg.Actor)
	return stateResponse(next, err)
}

func (s *Service) GetDraftState(ctx context.Context, req *connect.Request[draftrpc.DraftRequest]) (*connect.Response[draftrpc.GetDraftStateResponse], error) {
	view, err := s.draftApp.GetDraftState(ctx, req.Msg.DraftID)
	if err != nil {
		return nil, draftrpc.ToConnect(err)
	}
	return connect.NewResponse(&draftrpc.GetDraftStateResponse{
		DraftState:  view.DraftState,
		RecentPicks: view.RecentPicks,
		ServerNow:   view.ServerNow,
	}), nil
}

func (s *Service) RebuildState(ctx context.Context, req *connect.Request[draftrpc.DraftRequest]) (*connect.Response[draftrpc.RebuildStateResponse], error) {
	report, err := s.draftApp.RebuildState(ctx, req.Msg.DraftID)
	if err != nil {
		return nil, draftrpc.ToConnect(err)
	}
	return connect.NewResponse(&draftrpc.RebuildStateResponse{
		Rebuilt:    report.Rebuilt,
		Stored:     report.Stored,
		Events:     report.Events,
		Consistent: report.Consistent,
	}), nil
}

func stateResponse(s *models.DraftState, err error) (*connect.Response[draftrpc.DraftStateResponse], error) {
	if err != nil {
		return nil, draftrpc.ToConnect(err)
	}
	return connect.NewResponse(&draftrpc.DraftStateResponse{DraftState: s}), nil
}

package gateway

import (
	"context"

	"connectrpc.com/connect"
	"github.com/mcdev12/livedraft/go/internal/draft/autopick"
	"github.com/mcdev12/livedraft/go/internal/draft/draft"
	"github.com/mcdev12/livedraft/go/internal/draft/draftrpc"
	"github.com/mcdev12/livedraft/go/internal/draft/pick"
	"github.com/mcdev12/livedraft/go/internal/models"
)

// RemoteDrafts serves the draft application over the DraftService RPC, for a
// gateway running apart from the API server.
type RemoteDrafts struct {
	client *draftrpc.DraftServiceClient
}

// NewRemoteDrafts creates a draft application backed by client
func NewRemoteDrafts(client *draftrpc.DraftServiceClient) *RemoteDrafts {
	return &RemoteDrafts{client: client}
}

var _ draft.DraftApp = (*RemoteDrafts)(nil)

func (d *RemoteDrafts) CreateDraft(ctx context.Context, cfg models.DraftConfig) (*models.DraftState, error) {
	resp, err := d.client.CreateDraft(ctx, connect.NewRequest(&draftrpc.CreateDraftRequest{Config: cfg}))
	if err != nil {
		return nil, draftrpc.FromConnect(err)
	}
	return resp.Msg.DraftState, nil
}

func (d *RemoteDrafts) StartDraft(ctx context.Context, draftID, actor string) (*models.DraftState, error) {
	return d.lifecycle(ctx, d.client.StartDraft, draftID, actor)
}

func (d *RemoteDrafts) PauseDraft(ctx context.Context, draftID, actor string) (*models.DraftState, error) {
	return d.lifecycle(ctx, d.client.PauseDraft, draftID, actor)
}

func (d *RemoteDrafts) ResumeDraft(ctx context.Context, draftID, actor string) (*models.DraftState, error) {
	return d.lifecycle(ctx, d.client.ResumeDraft, draftID, actor)
}

type lifecycleCall func(context.Context, *connect.Request[draftrpc.DraftRequest]) (*connect.Response[draftrpc.DraftStateResponse], error)

func (d *RemoteDrafts) lifecycle(ctx context.Context, call lifecycleCall, draftID, actor string) (*models.DraftState, error) {
	resp, err := call(ctx, connect.NewRequest(&draftrpc.DraftRequest{DraftID: draftID, Actor: actor}))
	if err != nil {
		return nil, draftrpc.FromConnect(err)
	}
	return resp.Msg.DraftState, nil
}

func (d *RemoteDrafts) GetDraftState(ctx context.Context, draftID string) (*draft.DraftView, error) {
	resp, err := d.client.GetDraftState(ctx, connect.NewRequest(&draftrpc.DraftRequest{DraftID: draftID}))
	if err != nil {
		return nil, draftrpc.FromConnect(err)
	}
	return &draft.DraftView{
		DraftState:  resp.Msg.DraftState,
		RecentPicks: resp.Msg.RecentPicks,
		ServerNow:   resp.Msg.ServerNow,
	}, nil
}

func (d *RemoteDrafts) RebuildState(ctx context.Context, draftID string) (*draft.RebuildReport, error) {
	resp, err := d.client.RebuildState(ctx, connect.NewRequest(&draftrpc.DraftRequest{DraftID: draftID}))
	if err != nil {
		return nil, draftrpc.FromConnect(err)
	}
	return &draft.RebuildReport{
		Rebuilt:    resp.Msg.Rebuilt,
		Stored:     resp.Msg.Stored,
		Events:     resp.Msg.Events,
		Consistent: resp.Msg.Consistent,
	}, nil
}

// RemotePicks serves picks over the PickService RPC
type RemotePicks struct {
	client *draftrpc.PickServiceClient
}

// NewRemotePicks creates a pick client backed by client
func NewRemotePicks(client *draftrpc.PickServiceClient) *RemotePicks {
	return &RemotePicks{client: client}
}

var _ Picks = (*RemotePicks)(nil)

func (p *RemotePicks) MakePick(ctx context.Context, req pick.MakePickRequest) (*models.DraftState, error) {
	resp, err := p.client.MakePick(ctx, connect.NewRequest(&draftrpc.MakePickRequest{
		DraftID:        req.DraftID,
		TeamID:         req.TeamID,
		PlayerID:       req.PlayerID,
		Actor:          req.Actor,
		IdempotencyKey: req.IdempotencyKey,
	}))
	if err != nil {
		return nil, draftrpc.FromConnect(err)
	}
	return resp.Msg.DraftState, nil
}

func (p *RemotePicks) AutoPick(ctx context.Context, draftID string) (*pick.AutoPickResult, error) {
	resp, err := p.client.AutoPick(ctx, connect.NewRequest(&draftrpc.AutoPickRequest{DraftID: draftID}))
	if err != nil {
		return nil, draftrpc.FromConnect(err)
	}
	return &pick.AutoPickResult{
		State:   resp.Msg.DraftState,
		Skipped: resp.Msg.Skipped,
		Selection: autopick.Selection{
			PlayerID: resp.Msg.PlayerID,
			Tier:     autopick.Tier(resp.Msg.Tier),
		},
	}, nil
}

package draftrpc

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// DraftServiceHandler serves draft lifecycle RPCs.
type DraftServiceHandler interface {
	CreateDraft(context.Context, *connect.Request[CreateDraftRequest]) (*connect.Response[DraftStateResponse], error)
	StartDraft(context.Context, *connect.Request[DraftRequest]) (*connect.Response[DraftStateResponse], error)
	PauseDraft(context.Context, *connect.Request[DraftRequest]) (*connect.Response[DraftStateResponse], error)
	ResumeDraft(context.Context, *connect.Request[DraftRequest]) (*connect.Response[DraftStateResponse], error)
	GetDraftState(context.Context, *connect.Request[DraftRequest]) (*connect.Response[GetDraftStateResponse], error)
	RebuildState(context.Context, *connect.Request[DraftRequest]) (*connect.Response[RebuildStateResponse], error)
}

// PickServiceHandler serves pick RPCs, including the orchestrator's.
type PickServiceHandler interface {
	MakePick(context.Context, *connect.Request[MakePickRequest]) (*connect.Response[DraftStateResponse], error)
	AutoPick(context.Context, *connect.Request[AutoPickRequest]) (*connect.Response[AutoPickResponse], error)
	FetchNextDeadline(context.Context, *connect.Request[FetchNextDeadlineRequest]) (*connect.Response[FetchNextDeadlineResponse], error)
	FetchDraftsDueForPick(context.Context, *connect.Request[FetchDraftsDueForPickRequest]) (*connect.Response[FetchDraftsDueForPickResponse], error)
}

// NewDraftServiceHandler builds the HTTP handler for svc and returns the
// path prefix to mount it on.
func NewDraftServiceHandler(svc DraftServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSON()}, opts...)
	mux := http.NewServeMux()
	mux.Handle(DraftServiceCreateDraftProcedure, connect.NewUnaryHandler(DraftServiceCreateDraftProcedure, svc.CreateDraft, opts...))
	mux.Handle(DraftServiceStartDraftProcedure, connect.NewUnaryHandler(DraftServiceStartDraftProcedure, svc.StartDraft, opts...))
	mux.Handle(DraftServicePauseDraftProcedure, connect.NewUnaryHandler(DraftServicePauseDraftProcedure, svc.PauseDraft, opts...))
	mux.Handle(DraftServiceResumeDraftProcedure, connect.NewUnaryHandler(DraftServiceResumeDraftProcedure, svc.ResumeDraft, opts...))
	mux.Handle(DraftServiceGetDraftStateProcedure, connect.NewUnaryHandler(DraftServiceGetDraftStateProcedure, svc.GetDraftState, opts...))
	mux.Handle(DraftServiceRebuildStateProcedure, connect.NewUnaryHandler(DraftServiceRebuildStateProcedure, svc.RebuildState, opts...))
	return "/" + DraftServiceName + "/", mux
}

// NewPickServiceHandler builds the HTTP handler for svc and returns the path
// prefix to mount it on.
func NewPickServiceHandler(svc PickServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSON()}, opts...)
	mux := http.NewServeMux()
	mux.Handle(PickServiceMakePickProcedure, connect.NewUnaryHandler(PickServiceMakePickProcedure, svc.MakePick, opts...))
	mux.Handle(PickServiceAutoPickProcedure, connect.NewUnaryHandler(PickServiceAutoPickProcedure, svc.AutoPick, opts...))
	mux.Handle(PickServiceFetchNextDeadlineProcedure, connect.NewUnaryHandler(PickServiceFetchNextDeadlineProcedure, svc.FetchNextDeadline, opts...))
	mux.Handle(PickServiceFetchDraftsDueForPickProcedure, connect.NewUnaryHandler(PickServiceFetchDraftsDueForPickProcedure, svc.FetchDraftsDueForPick, opts...))
	return "/" + PickServiceName + "/", mux
}

// DraftServiceClient calls a DraftService.
type DraftServiceClient struct {
	createDraft   *connect.Client[CreateDraftRequest, DraftStateResponse]
	startDraft    *connect.Client[DraftRequest, DraftStateResponse]
	pauseDraft    *connect.Client[DraftRequest, DraftStateResponse]
	resumeDraft   *connect.Client[DraftRequest, DraftStateResponse]
	getDraftState *connect.Client[DraftRequest, GetDraftStateResponse]
	rebuildState  *connect.Client[DraftRequest, RebuildStateResponse]
}

func NewDraftServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *DraftServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{WithJSON()}, opts...)
	return &DraftServiceClient{
		createDraft:   connect.NewClient[CreateDraftRequest, DraftStateResponse](httpClient, baseURL+DraftServiceCreateDraftProcedure, opts...),
		startDraft:    connect.NewClient[DraftRequest, DraftStateResponse](httpClient, baseURL+DraftServiceStartDraftProcedure, opts...),
		pauseDraft:    connect.NewClient[DraftRequest, DraftStateResponse](httpClient, baseURL+DraftServicePauseDraftProcedure, opts...),
		resumeDraft:   connect.NewClient[DraftRequest, DraftStateResponse](httpClient, baseURL+DraftServiceResumeDraftProcedure, opts...),
		getDraftState: connect.NewClient[DraftRequest, GetDraftStateResponse](httpClient, baseURL+DraftServiceGetDraftStateProcedure, opts...),
		rebuildState:  connect.NewClient[DraftRequest, RebuildStateResponse](httpClient, baseURL+DraftServiceRebuildStateProcedure, opts...),
	}
}

func (c *DraftServiceClient) CreateDraft(ctx context.Context, req *connect.Request[CreateDraftRequest]) (*connect.Response[DraftStateResponse], error) {
	return c.createDraft.CallUnary(ctx, req)
}

func (c *DraftServiceClient) StartDraft(ctx context.Context, req *connect.Request[DraftRequest]) (*connect.Response[DraftStateResponse], error) {
	return c.startDraft.CallUnary(ctx, req)
}

func (c *DraftServiceClient) PauseDraft(ctx context.Context, req *connect.Request[DraftRequest]) (*connect.Response[DraftStateResponse], error) {
	return c.pauseDraft.CallUnary(ctx, req)
}

func (c *DraftServiceClient) ResumeDraft(ctx context.Context, req *connect.Request[DraftRequest]) (*connect.Response[DraftStateResponse], error) {
	return c.resumeDraft.CallUnary(ctx, req)
}

func (c *DraftServiceClient) GetDraftState(ctx context.Context, req *connect.Request[DraftRequest]) (*connect.Response[GetDraftStateResponse], error) {
	return c.getDraftState.CallUnary(ctx, req)
}

func (c *DraftServiceClient) RebuildState(ctx context.Context, req *connect.Request[DraftRequest]) (*connect.Response[RebuildStateResponse], error) {
	return c.rebuildState.CallUnary(ctx, req)
}

// PickServiceClient calls a PickService.
type PickServiceClient struct {
	makePick              *connect.Client[MakePickRequest, DraftStateResponse]
	autoPick              *connect.Client[AutoPickRequest, AutoPickResponse]
	fetchNextDeadline     *connect.Client[FetchNextDeadlineRequest, FetchNextDeadlineResponse]
	fetchDraftsDueForPick *connect.Client[FetchDraftsDueForPickRequest, FetchDraftsDueForPickResponse]
}

func NewPickServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *PickServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{WithJSON()}, opts...)
	return &PickServiceClient{
		makePick:              connect.NewClient[MakePickRequest, DraftStateResponse](httpClient, baseURL+PickServiceMakePickProcedure, opts...),
		autoPick:              connect.NewClient[AutoPickRequest, AutoPickResponse](httpClient, baseURL+PickServiceAutoPickProcedure, opts...),
		fetchNextDeadline:     connect.NewClient[FetchNextDeadlineRequest, FetchNextDeadlineResponse](httpClient, baseURL+PickServiceFetchNextDeadlineProcedure, opts...),
		fetchDraftsDueForPick: connect.NewClient[FetchDraftsDueForPickRequest, FetchDraftsDueForPickResponse](httpClient, baseURL+PickServiceFetchDraftsDueForPickProcedure, opts...),
	}
}

func (c *PickServiceClient) MakePick(ctx context.Context, req *connect.Request[MakePickRequest]) (*connect.Response[DraftStateResponse], error) {
	return c.makePick.CallUnary(ctx, req)
}

func (c *PickServiceClient) AutoPick(ctx context.Context, req *connect.Request[AutoPickRequest]) (*connect.Response[AutoPickResponse], error) {
	return c.autoPick.CallUnary(ctx, req)
}

func (c *PickServiceClient) FetchNextDeadline(ctx context.Context, req *connect.Request[FetchNextDeadlineRequest]) (*connect.Response[FetchNextDeadlineResponse], error) {
	return c.fetchNextDeadline.CallUnary(ctx, req)
}

func (c *PickServiceClient) FetchDraftsDueForPick(ctx context.Context, req *connect.Request[FetchDraftsDueForPickRequest]) (*connect.Response[FetchDraftsDueForPickResponse], error) {
	return c.fetchDraftsDueForPick.CallUnary(ctx, req)
}

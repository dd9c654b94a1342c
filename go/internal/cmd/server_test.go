package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"connectrpc.com/connect"
	"github.com/mcdev12/livedraft/go/internal/config"
	"github.com/mcdev12/livedraft/go/internal/draft/draftrpc"
	"github.com/mcdev12/livedraft/go/internal/metrics"
	"github.com/mcdev12/livedraft/go/internal/models"
	. "github.com/smartystreets/goconvey/convey"
)

func TestServer(t *testing.T) {
	Convey("Given the API wired over the in-memory store", t, func() {
		ctx := context.Background()
		cfg := config.Defaults()
		cfg.Store = config.StoreModeMemory
		rec := metrics.NewRecorder()

		services, err := setupServices(ctx, cfg, rec)
		So(err, ShouldBeNil)
		defer services.Close()

		srv := httptest.NewServer(newHandler(services))
		defer srv.Close()

		Convey("A draft created over REST is visible over RPC", func() {
			body := `{"draft_id":"d1","league_id":"l1","draft_order":["A","B"],"rounds":2,"pick_time_seconds":60}`
			resp, err := srv.Client().Post(srv.URL+"/drafts", "application/json", strings.NewReader(body))
			So(err, ShouldBeNil)
			resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusCreated)

			client := draftrpc.NewDraftServiceClient(srv.Client(), srv.URL)
			started, err := client.StartDraft(ctx, connect.NewRequest(&draftrpc.DraftRequest{DraftID: "d1"}))
			So(err, ShouldBeNil)
			So(started.Msg.DraftState.Status, ShouldEqual, models.DraftStatusDrafting)
			So(rec.Count("transition:start:ok"), ShouldEqual, 1)

			picks := draftrpc.NewPickServiceClient(srv.Client(), srv.URL)
			next, err := picks.FetchNextDeadline(ctx, connect.NewRequest(&draftrpc.FetchNextDeadlineRequest{}))
			So(err, ShouldBeNil)
			So(next.Msg.DraftID, ShouldEqual, "d1")
		})

		Convey("Health and metrics are served", func() {
			resp, err := srv.Client().Get(srv.URL + "/health")
			So(err, ShouldBeNil)
			resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			resp, err = srv.Client().Get(srv.URL + "/metrics")
			So(err, ShouldBeNil)
			resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
		})

		Convey("Preflight requests are answered by CORS", func() {
			req, err := http.NewRequest(http.MethodOptions, srv.URL+"/drafts/d1/pick", nil)
			So(err, ShouldBeNil)
			req.Header.Set("Origin", "http://board.example")
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			resp, err := srv.Client().Do(req)
			So(err, ShouldBeNil)
			resp.Body.Close()
			So(resp.Header.Get("Access-Control-Allow-Origin"), ShouldEqual, "*")
		})
	})
}

package pick

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/mcdev12/livedraft/go/internal/draft/drafterrors"
	"github.com/mcdev12/livedraft/go/internal/draft/draftrpc"
	. "github.com/smartystreets/goconvey/convey"
)

func TestService(t *testing.T) {
	ctx := context.Background()

	Convey("Given the pick service behind an HTTP server", t, func() {
		fx := newFixture(t, 2)
		mux := http.NewServeMux()
		path, handler := draftrpc.NewPickServiceHandler(NewService(fx.app))
		mux.Handle(path, handler)
		srv := httptest.NewServer(mux)
		defer srv.Close()
		client := draftrpc.NewPickServiceClient(srv.Client(), srv.URL)

		Convey("A valid pick returns the advanced state", func() {
			resp, err := client.MakePick(ctx, connect.NewRequest(&draftrpc.MakePickRequest{
				DraftID: "d1", TeamID: "A", PlayerID: "p3",
			}))
			So(err, ShouldBeNil)
			So(resp.Msg.DraftState.OnClockTeamID, ShouldEqual, "B")
			So(resp.Msg.DraftState.Version, ShouldEqual, 2)
		})

		Convey("The error kind survives the round trip", func() {
			_, err := client.MakePick(ctx, connect.NewRequest(&draftrpc.MakePickRequest{
				DraftID: "d1", TeamID: "C", PlayerID: "p3",
			}))
			So(connect.CodeOf(err), ShouldEqual, connect.CodeFailedPrecondition)
			So(errors.Is(draftrpc.FromConnect(err), drafterrors.ErrWrongTurn), ShouldBeTrue)
		})

		Convey("The orchestrator queries and autopick are served", func() {
			next, err := client.FetchNextDeadline(ctx, connect.NewRequest(&draftrpc.FetchNextDeadlineRequest{}))
			So(err, ShouldBeNil)
			So(next.Msg.DraftID, ShouldEqual, "d1")
			So(next.Msg.Deadline.Equal(t0.Add(time.Minute)), ShouldBeTrue)

			fx.clock.Advance(2 * time.Minute)
			due, err := client.FetchDraftsDueForPick(ctx, connect.NewRequest(&draftrpc.FetchDraftsDueForPickRequest{Limit: 5}))
			So(err, ShouldBeNil)
			So(due.Msg.DraftIDs, ShouldResemble, []string{"d1"})

			res, err := client.AutoPick(ctx, connect.NewRequest(&draftrpc.AutoPickRequest{DraftID: "d1"}))
			So(err, ShouldBeNil)
			So(res.Msg.Skipped, ShouldBeFalse)
			So(res.Msg.PlayerID, ShouldEqual, "p2")
			So(res.Msg.Tier, ShouldEqual, "adp")
		})

		Convey("An unknown draft is not found", func() {
			_, err := client.AutoPick(ctx, connect.NewRequest(&draftrpc.AutoPickRequest{DraftID: "nope"}))
			So(connect.CodeOf(err), ShouldEqual, connect.CodeNotFound)
		})
	})
}

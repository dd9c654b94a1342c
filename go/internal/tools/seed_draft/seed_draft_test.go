package main

import (
	"testing"
	"time"

	"github.com/mcdev12/livedraft/go/internal/models"
	. "github.com/smartystreets/goconvey/convey"
)

func adp(v float64) *float64 { return &v }

func TestBuildState(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	Convey("Given a seed without its own pool", t, func() {
		seed := Seed{
			Draft: models.DraftConfig{
				DraftID: "d1", LeagueID: "l1", DraftOrder: []string{"A", "B"}, Rounds: 2, PickTimeSeconds: 60,
			},
			Players: []models.Player{
				{ID: "p1", Draftable: true, ADP: adp(3)},
				{ID: "p2", Draftable: false, ADP: adp(1)},
				{ID: "p3", Draftable: true},
			},
		}

		Convey("The draftable catalog becomes the pool", func() {
			st, err := buildState(seed, now)
			So(err, ShouldBeNil)
			So(st.Status, ShouldEqual, models.DraftStatusPreDraft)
			So(st.Version, ShouldEqual, 0)
			So(len(st.AvailablePlayerPool), ShouldEqual, 2)
			So(st.AvailablePlayerPool[0].PlayerID, ShouldEqual, "p1")
			So(*st.AvailablePlayerPool[0].ADP, ShouldEqual, 3)
		})

		Convey("A missing league is refused", func() {
			seed.Draft.LeagueID = ""
			_, err := buildState(seed, now)
			So(err, ShouldNotBeNil)
		})

		Convey("A draft without teams is refused", func() {
			seed.Draft.DraftOrder = nil
			_, err := buildState(seed, now)
			So(err, ShouldNotBeNil)
		})
	})
}

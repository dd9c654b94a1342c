package state

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/mcdev12/livedraft/go/internal/models"
	"github.com/redis/go-redis/v9"
	. "github.com/smartystreets/goconvey/convey"
)

var t0 = time.Date(2026, 9, 6, 18, 0, 0, 0, time.UTC)

func newDraft(id string) *models.DraftState {
	return models.NewPreDraftState(models.DraftConfig{
		DraftID:         id,
		LeagueID:        "l1",
		DraftOrder:      []string{"A", "B", "C", "D"},
		Rounds:          2,
		PickTimeSeconds: 60,
	}, t0)
}

func TestRedisCache(t *testing.T) {
	Convey("Given a Redis state cache", t, func() {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer client.Close()
		cache := NewRedisCache(client, time.Hour)
		ctx := context.Background()

		Convey("A miss returns nil without error", func() {
			s, err := cache.Get(ctx, "missing")
			So(err, ShouldBeNil)
			So(s, ShouldBeNil)
		})

		Convey("A stored state round-trips with its TTL", func() {
			s := newDraft("d1")
			s.Version = 3
			So(cache.Set(ctx, s), ShouldBeNil)
			So(mr.TTL("draft:d1:state"), ShouldEqual, time.Hour)

			got, err := cache.Get(ctx, "d1")
			So(err, ShouldBeNil)
			So(got.Version, ShouldEqual, 3)
			So(got.DraftOrder, ShouldResemble, []string{"A", "B", "C", "D"})

			Convey("An older version never overwrites a newer one", func() {
				stale := newDraft("d1")
				stale.Version = 2
				So(cache.Set(ctx, stale), ShouldBeNil)
				got, err := cache.Get(ctx, "d1")
				So(err, ShouldBeNil)
				So(got.Version, ShouldEqual, 3)
			})

			Convey("Delete drops the entry", func() {
				So(cache.Delete(ctx, "d1"), ShouldBeNil)
				got, err := cache.Get(ctx, "d1")
				So(err, ShouldBeNil)
				So(got, ShouldBeNil)
			})
		})

		Convey("A stopped server surfaces an error", func() {
			mr.Close()
			_, err := cache.Get(ctx, "d1")
			So(err, ShouldNotBeNil)
		})
	})
}

package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/okian/sofascout/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSet(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new Set", t, func() {
		s := dedupe.NewSet()

		Convey("When a team key is recorded for the first time", func() {
			seen := s.SeenAndRecord(ctx, "team:42")

			Convey("Then it is reported as new", func() {
				So(seen, ShouldBeFalse)
				So(s.Size(), ShouldEqual, 1)
			})
		})

		Convey("When the same key is recorded twice", func() {
			s.SeenAndRecord(ctx, "player:7")
			seen := s.SeenAndRecord(ctx, "player:7")

			Convey("Then the second call reports it as seen", func() {
				So(seen, ShouldBeTrue)
				So(s.Size(), ShouldEqual, 1)
			})
		})

		Convey("When many keys are recorded without a bound", func() {
			for i := 0; i < 1000; i++ {
				So(s.SeenAndRecord(ctx, fmt.Sprintf("player:%d", i)), ShouldBeFalse)
			}

			Convey("Then none are evicted", func() {
				So(s.Size(), ShouldEqual, 1000)
				So(s.SeenAndRecord(ctx, "player:0"), ShouldBeTrue)
			})
		})
	})
}

func TestSetConcurrency(t *testing.T) {
	Convey("Given a Set shared by several goroutines", t, func() {
		s := dedupe.NewSet()
		const workers = 10
		const perWorker = 100

		Convey("When every goroutine records the same keys", func() {
			var wg sync.WaitGroup
			var mu sync.Mutex
			fresh := 0
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for j := 0; j < perWorker; j++ {
						if !s.SeenAndRecord(context.Background(), fmt.Sprintf("team:%d", j)) {
							mu.Lock()
							fresh++
							mu.Unlock()
						}
					}
				}()
			}
			wg.Wait()

			Convey("Then each key is reported new exactly once", func() {
				So(fresh, ShouldEqual, perWorker)
				So(s.Size(), ShouldEqual, perWorker)
			})
		})
	})
}

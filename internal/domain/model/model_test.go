package model_test

import (
	"errors"
	"testing"

	model "github.com/okian/sofascout/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestExchange(t *testing.T) {
	convey.Convey("Given an Exchange", t, func() {
		convey.Convey("When the body is read twice", func() {
			calls := 0
			ex := model.NewExchange("1", "https://www.sofascore.com/api/v1/team/42", 200, func() ([]byte, error) {
				calls++
				return []byte(`{"ok":true}`), nil
			})

			first, err1 := ex.Body()
			second, err2 := ex.Body()

			convey.Convey("Then the reader runs once and both calls agree", func() {
				convey.So(err1, convey.ShouldBeNil)
				convey.So(err2, convey.ShouldBeNil)
				convey.So(string(first), convey.ShouldEqual, `{"ok":true}`)
				convey.So(string(second), convey.ShouldEqual, string(first))
				convey.So(calls, convey.ShouldEqual, 1)
				convey.So(ex.ObservedAt.IsZero(), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the reader fails", func() {
			boom := errors.New("body evicted")
			ex := model.NewExchange("2", "u", 200, func() ([]byte, error) { return nil, boom })
			_, err1 := ex.Body()
			_, err2 := ex.Body()

			convey.Convey("Then the same error comes back every time", func() {
				convey.So(err1, convey.ShouldEqual, boom)
				convey.So(err2, convey.ShouldEqual, boom)
			})
		})

		convey.Convey("When there is no reader", func() {
			_, err := model.NewExchange("3", "u", 200, nil).Body()
			convey.So(errors.Is(err, model.ErrNoBody), convey.ShouldBeTrue)
		})

		convey.Convey("When matching against root and pattern", func() {
			root := "www.sofascore.com/api/v1"
			ok := model.NewExchange("4", "https://www.sofascore.com/api/v1/player/7/characteristics", 200, nil)
			notFound := model.NewExchange("5", "https://www.sofascore.com/api/v1/player/7/characteristics", 404, nil)
			elsewhere := model.NewExchange("6", "https://cdn.example.com/player/7/characteristics", 200, nil)

			convey.So(ok.Matches(root, "player/7/characteristics"), convey.ShouldBeTrue)
			convey.So(ok.Matches(root, "player/8/characteristics"), convey.ShouldBeFalse)
			convey.So(notFound.Matches(root, "player/7/characteristics"), convey.ShouldBeFalse)
			convey.So(elsewhere.Matches(root, "player/7/characteristics"), convey.ShouldBeFalse)
		})
	})
}

func TestKeys(t *testing.T) {
	convey.Convey("Team and player keys are their ids", t, func() {
		convey.So(model.Team{ID: 42}.Key(), convey.ShouldEqual, "42")
		convey.So(model.Player{ID: 934235, TeamID: 42}.Key(), convey.ShouldEqual, "934235")
	})
}

package browser

import (
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/okian/sofascout/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestStatusError(t *testing.T) {
	Convey("Given failed in-page fetches", t, func() {
		missing := &StatusError{URL: "https://www.sofascore.com/api/v1/player/1/statistics", Status: 404}
		blocked := &StatusError{URL: "https://www.sofascore.com/api/v1/player/1/statistics", Status: 403}

		Convey("Then 404 maps to ErrNotFound and others do not", func() {
			So(errors.Is(missing, ErrNotFound), ShouldBeTrue)
			So(errors.Is(blocked, ErrNotFound), ShouldBeFalse)
			So(blocked.Error(), ShouldEndWith, "HTTP 403")
		})
	})
}

func TestTabLabelPattern(t *testing.T) {
	Convey("Given tab labels with regexp metacharacters", t, func() {
		for _, label := range []string{"Statistics", "Players (23)", "A/B", "x.y"} {
			pattern := tabLabelPattern(label)
			So(pattern, ShouldStartWith, "/^")
			So(pattern, ShouldEndWith, "$/i")

			body := strings.ReplaceAll(strings.TrimSuffix(strings.TrimPrefix(pattern, "/"), "/i"), `\/`, "/")
			re := regexp.MustCompile("(?i)" + body)
			So(re.MatchString(label), ShouldBeTrue)
			So(re.MatchString("  "+strings.ToUpper(label)+" "), ShouldBeTrue)
			So(re.MatchString(label+" extra"), ShouldBeFalse)
		}
		So(tabLabelPattern("a.b"), ShouldEqual, `/^\s*a\.b\s*$/i`)
		So(tabLabelPattern("A/B"), ShouldEqual, `/^\s*A\/B\s*$/i`)
	})
}

func TestOptionsDefaults(t *testing.T) {
	Convey("Given empty options", t, func() {
		_ = logger.Init()
		o := Options{}
		o.defaults()

		Convey("Then timeouts and the logger are filled in", func() {
			So(o.NavigationTimeout, ShouldEqual, 30*time.Second)
			So(o.TabTimeout, ShouldEqual, 3*time.Second)
			So(o.Logger, ShouldNotBeNil)
		})
	})
}

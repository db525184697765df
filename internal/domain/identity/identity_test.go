package identity_test

import (
	"testing"

	identity "github.com/mihrab-labs/salahstreak/internal/domain/identity"
	"github.com/mihrab-labs/salahstreak/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestResolver(t *testing.T) {
	Convey("Given a resolver over a small participant directory", t, func() {
		r := identity.NewResolver([]model.Participant{
			{ID: 17, Code: "P0001", FullName: "Amina Said"},
			{ID: 23, Code: "P0002", FullName: "Bilal Khan"},
			{ID: 31, Code: "401", FullName: "Yusuf Omar"},
		})

		Convey("An exact code match resolves", func() {
			p, ok := r.Resolve("P0002")
			So(ok, ShouldBeTrue)
			So(p.ID, ShouldEqual, 23)
		})

		Convey("Surrounding whitespace is stripped before matching", func() {
			p, ok := r.Resolve("  P0001 ")
			So(ok, ShouldBeTrue)
			So(p.ID, ShouldEqual, 17)
		})

		Convey("A numeric identifier falls back to the internal id", func() {
			p, ok := r.Resolve("23")
			So(ok, ShouldBeTrue)
			So(p.Code, ShouldEqual, "P0002")
		})

		Convey("A code that looks numeric still wins over the id fallback", func() {
			p, ok := r.Resolve("401")
			So(ok, ShouldBeTrue)
			So(p.ID, ShouldEqual, 31)
		})

		Convey("An unknown identifier reports unmatched", func() {
			_, ok := r.Resolve("P9999")
			So(ok, ShouldBeFalse)
		})

		Convey("An empty identifier reports unmatched", func() {
			_, ok := r.Resolve("   ")
			So(ok, ShouldBeFalse)
		})
	})
}

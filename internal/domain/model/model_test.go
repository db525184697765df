package model_test

import (
	"testing"
	"time"

	model "github.com/mihrab-labs/salahstreak/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDate(t *testing.T) {
	Convey("Given calendar dates", t, func() {
		d := model.NewDate(2024, time.March, 10)

		Convey("Parsing round-trips the ISO form", func() {
			parsed, err := model.ParseDate("2024-03-10")
			So(err, ShouldBeNil)
			So(parsed.Equal(d), ShouldBeTrue)
			So(parsed.String(), ShouldEqual, "2024-03-10")
		})

		Convey("Parsing rejects malformed input", func() {
			_, err := model.ParseDate("10/03/2024")
			So(err, ShouldNotBeNil)
		})

		Convey("Ordering compares by calendar day", func() {
			So(d.Before(model.NewDate(2024, time.March, 11)), ShouldBeTrue)
			So(d.After(model.NewDate(2024, time.February, 28)), ShouldBeTrue)
			So(d.Equal(model.NewDate(2024, time.March, 10)), ShouldBeTrue)
		})

		Convey("AddDays carries across month and year boundaries", func() {
			So(model.NewDate(2024, time.December, 31).AddDays(1).String(), ShouldEqual, "2025-01-01")
			So(model.NewDate(2024, time.March, 1).AddDays(-1).String(), ShouldEqual, "2024-02-29")
		})

		Convey("DateOf truncates an instant in its own location", func() {
			loc, err := time.LoadLocation("Asia/Riyadh")
			So(err, ShouldBeNil)
			late := time.Date(2024, 3, 10, 23, 30, 0, 0, loc)
			So(model.DateOf(late).String(), ShouldEqual, "2024-03-10")
		})

		Convey("The zero value is detectable", func() {
			So(model.Date{}.IsZero(), ShouldBeTrue)
			So(d.IsZero(), ShouldBeFalse)
		})
	})
}

func TestTimeOfDay(t *testing.T) {
	Convey("Given clock times", t, func() {
		Convey("Parsing accepts 24-hour clock values", func() {
			tod, err := model.ParseTimeOfDay("05:15")
			So(err, ShouldBeNil)
			So(tod.String(), ShouldEqual, "05:15")

			evening, err := model.ParseTimeOfDay("21:00")
			So(err, ShouldBeNil)
			So(evening.String(), ShouldEqual, "21:00")
		})

		Convey("Parsing rejects malformed input", func() {
			_, err := model.ParseTimeOfDay("9:99")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestScheduledEventWindow(t *testing.T) {
	Convey("Given a dawn event at 05:15 with a 30 minute tolerance", t, func() {
		tod, err := model.ParseTimeOfDay("05:15")
		So(err, ShouldBeNil)
		e := model.ScheduledEvent{
			Date:             model.NewDate(2024, time.March, 10),
			ExpectedTime:     tod,
			ToleranceMinutes: 30,
		}

		Convey("The window spans 04:45 to 05:45 around the expected instant", func() {
			start, expected, end := e.Window(time.UTC)
			So(expected, ShouldResemble, time.Date(2024, 3, 10, 5, 15, 0, 0, time.UTC))
			So(start, ShouldResemble, time.Date(2024, 3, 10, 4, 45, 0, 0, time.UTC))
			So(end, ShouldResemble, time.Date(2024, 3, 10, 5, 45, 0, 0, time.UTC))
		})

		Convey("A zero tolerance collapses the window to the expected instant", func() {
			e.ToleranceMinutes = 0
			start, expected, end := e.Window(time.UTC)
			So(start, ShouldResemble, expected)
			So(end, ShouldResemble, expected)
		})
	})
}

func TestRound(t *testing.T) {
	Convey("Given a 40-day round", t, func() {
		r := model.Round{
			StartDate:    model.NewDate(2024, time.March, 1),
			EndDate:      model.NewDate(2024, time.April, 9),
			DurationDays: 40,
			EventsPerDay: 5,
		}

		Convey("Contains is inclusive at both boundaries", func() {
			So(r.Contains(model.NewDate(2024, time.March, 1)), ShouldBeTrue)
			So(r.Contains(model.NewDate(2024, time.April, 9)), ShouldBeTrue)
			So(r.Contains(model.NewDate(2024, time.February, 29)), ShouldBeFalse)
			So(r.Contains(model.NewDate(2024, time.April, 10)), ShouldBeFalse)
		})

		Convey("NominalMax is days times events per day", func() {
			So(r.NominalMax(), ShouldEqual, 200)
		})
	})
}

func TestAgeGroup(t *testing.T) {
	Convey("Given an age group from 13 to 17", t, func() {
		g := model.AgeGroup{MinAge: 13, MaxAge: 17}

		Convey("Both boundaries are inclusive", func() {
			So(g.Includes(13), ShouldBeTrue)
			So(g.Includes(17), ShouldBeTrue)
			So(g.Includes(12), ShouldBeFalse)
			So(g.Includes(18), ShouldBeFalse)
		})
	})
}

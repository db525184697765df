package scoring_test

import (
	"testing"
	"time"

	"github.com/mihrab-labs/salahstreak/internal/domain/model"
	scoring "github.com/mihrab-labs/salahstreak/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func punch(id int64, ts time.Time) model.CheckIn {
	return model.CheckIn{ID: id, ParticipantID: 42, Timestamp: ts}
}

func TestEvaluate(t *testing.T) {
	loc := time.UTC
	expected := time.Date(2024, 3, 10, 5, 15, 0, 0, loc)

	Convey("Given the scoring policy for one scheduled event", t, func() {
		Convey("When no punches exist", func() {
			out := scoring.Evaluate(expected, nil, nil)

			Convey("Then the outcome is an absence", func() {
				So(out.Score, ShouldEqual, 0)
				So(out.Matched, ShouldBeNil)
				So(out.IsLate, ShouldBeFalse)
				So(out.IsDuplicate, ShouldBeFalse)
				So(out.Notes, ShouldEqual, "No check-in")
			})
		})

		Convey("When the only punches are outside the window on the same day", func() {
			late := []model.CheckIn{
				punch(2, expected.Add(90*time.Minute)),
				punch(1, expected.Add(45*time.Minute)),
			}
			out := scoring.Evaluate(expected, nil, late)

			Convey("Then the outcome is late with zero score", func() {
				So(out.Score, ShouldEqual, 0)
				So(out.IsLate, ShouldBeTrue)
				So(out.Notes, ShouldEqual, "Late check-in outside window")
			})

			Convey("And the earliest late punch is recorded as matched", func() {
				So(out.Matched, ShouldNotBeNil)
				So(out.Matched.ID, ShouldEqual, 1)
			})
		})

		Convey("When exactly one punch lands inside the window", func() {
			valid := []model.CheckIn{punch(7, expected.Add(-12*time.Minute))}
			out := scoring.Evaluate(expected, valid, nil)

			Convey("Then the participant scores one point", func() {
				So(out.Score, ShouldEqual, 1)
				So(out.Matched, ShouldNotBeNil)
				So(out.Matched.ID, ShouldEqual, 7)
				So(out.IsLate, ShouldBeFalse)
				So(out.IsDuplicate, ShouldBeFalse)
				So(out.Notes, ShouldEqual, "On time (±12 min)")
			})
		})

		Convey("When a punch is exactly on the expected time", func() {
			out := scoring.Evaluate(expected, []model.CheckIn{punch(3, expected)}, nil)

			So(out.Score, ShouldEqual, 1)
			So(out.Notes, ShouldEqual, "On time (±0 min)")
		})

		Convey("When several punches land inside the window", func() {
			valid := []model.CheckIn{
				punch(10, expected.Add(-5*time.Minute)),
				punch(11, expected.Add(10*time.Minute)),
			}
			out := scoring.Evaluate(expected, valid, nil)

			Convey("Then the closest punch wins and the row is flagged duplicate", func() {
				So(out.Score, ShouldEqual, 1)
				So(out.IsDuplicate, ShouldBeTrue)
				So(out.Matched.ID, ShouldEqual, 10)
				So(out.Notes, ShouldEqual, "Multiple check-ins, using closest (±5 min from expected)")
			})
		})

		Convey("When two valid punches are equally distant from expected", func() {
			valid := []model.CheckIn{
				punch(20, expected.Add(-8*time.Minute)),
				punch(21, expected.Add(8*time.Minute)),
			}
			out := scoring.Evaluate(expected, valid, nil)

			Convey("Then the earlier punch wins", func() {
				So(out.Matched.ID, ShouldEqual, 20)
				So(out.IsDuplicate, ShouldBeTrue)
			})
		})

		Convey("When valid and late punches coexist", func() {
			valid := []model.CheckIn{punch(30, expected.Add(20*time.Minute))}
			late := []model.CheckIn{punch(31, expected.Add(2*time.Hour))}
			out := scoring.Evaluate(expected, valid, late)

			Convey("Then the valid punch wins and the outcome is not late", func() {
				So(out.Score, ShouldEqual, 1)
				So(out.IsLate, ShouldBeFalse)
				So(out.Matched.ID, ShouldEqual, 30)
			})
		})
	})
}

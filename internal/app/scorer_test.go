package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/mihrab-labs/salahstreak/internal/adapters/repository"
	service "github.com/mihrab-labs/salahstreak/internal/app"
	"github.com/mihrab-labs/salahstreak/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func addEvent(ctx context.Context, st repository.Store, date model.Date, clock string, tol int) model.ScheduledEvent {
	tod, err := model.ParseTimeOfDay(clock)
	So(err, ShouldBeNil)
	e := model.ScheduledEvent{Date: date, ExpectedTime: tod, ToleranceMinutes: tol, Active: true}
	So(st.CreateEvent(ctx, &e), ShouldBeNil)
	return e
}

func addParticipant(ctx context.Context, st repository.Store, code string, groupID int64) model.Participant {
	p := model.Participant{Code: code, FullName: "Member " + code, Age: 20, AgeGroupID: groupID, Active: true}
	So(st.CreateParticipant(ctx, &p), ShouldBeNil)
	return p
}

func addPunch(ctx context.Context, st repository.Store, p model.Participant, ts time.Time) model.CheckIn {
	c := model.CheckIn{ParticipantID: p.ID, ParticipantRef: p.Code, Timestamp: ts, CreatedAt: ts}
	So(st.InsertCheckIn(ctx, &c), ShouldBeNil)
	return c
}

func TestProcessScores(t *testing.T) {
	ctx := context.Background()
	day := model.NewDate(2024, time.March, 10)
	now := time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC)

	Convey("Given a service over one dawn event and three participants", t, func() {
		st := repository.NewMemoryStore(time.UTC)
		svc := service.New(
			service.WithStore(st),
			service.WithLocation(time.UTC),
			service.WithClock(fixedClock(now)),
		)

		e := addEvent(ctx, st, day, "05:15", 30)
		onTime := addParticipant(ctx, st, "P0001", 1)
		lateOne := addParticipant(ctx, st, "P0002", 1)
		absent := addParticipant(ctx, st, "P0003", 1)

		expected := time.Date(2024, 3, 10, 5, 15, 0, 0, time.UTC)
		punch := addPunch(ctx, st, onTime, expected.Add(-7*time.Minute))
		addPunch(ctx, st, lateOne, expected.Add(2*time.Hour))

		Convey("When the scoring run processes the day", func() {
			So(svc.ProcessScores(ctx, &day, &day), ShouldBeNil)

			Convey("Then the on-time participant scores one with the punch matched", func() {
				rows, err := svc.ScoresFor(ctx, onTime.ID, nil, nil)
				So(err, ShouldBeNil)
				So(len(rows), ShouldEqual, 1)
				So(rows[0].Score, ShouldEqual, 1)
				So(rows[0].MatchedCheckInID, ShouldEqual, punch.ID)
				So(rows[0].Notes, ShouldEqual, "On time (±7 min)")
			})

			Convey("Then the late participant scores zero and is flagged late", func() {
				rows, err := svc.ScoresFor(ctx, lateOne.ID, nil, nil)
				So(err, ShouldBeNil)
				So(len(rows), ShouldEqual, 1)
				So(rows[0].Score, ShouldEqual, 0)
				So(rows[0].IsLate, ShouldBeTrue)
				So(rows[0].Notes, ShouldEqual, "Late check-in outside window")
			})

			Convey("Then the absent participant gets an explicit zero row", func() {
				rows, err := svc.ScoresFor(ctx, absent.ID, nil, nil)
				So(err, ShouldBeNil)
				So(len(rows), ShouldEqual, 1)
				So(rows[0].Score, ShouldEqual, 0)
				So(rows[0].Notes, ShouldEqual, "No check-in")
			})

			Convey("And a second run changes nothing but stays one row per pair", func() {
				So(svc.ProcessScores(ctx, &day, &day), ShouldBeNil)
				total, err := svc.TotalScore(ctx, onTime.ID, nil, nil)
				So(err, ShouldBeNil)
				So(total, ShouldEqual, 1)
				rows, err := svc.ScoresFor(ctx, onTime.ID, nil, nil)
				So(err, ShouldBeNil)
				So(len(rows), ShouldEqual, 1)
			})
		})

		Convey("When a participant punches twice inside the window", func() {
			double := addParticipant(ctx, st, "P0004", 1)
			closer := addPunch(ctx, st, double, expected.Add(-5*time.Minute))
			addPunch(ctx, st, double, expected.Add(10*time.Minute))

			So(svc.ProcessScores(ctx, &day, &day), ShouldBeNil)

			Convey("Then the closest punch wins and the row is flagged duplicate", func() {
				rows, err := svc.ScoresFor(ctx, double.ID, nil, nil)
				So(err, ShouldBeNil)
				So(len(rows), ShouldEqual, 1)
				So(rows[0].Score, ShouldEqual, 1)
				So(rows[0].IsDuplicate, ShouldBeTrue)
				So(rows[0].MatchedCheckInID, ShouldEqual, closer.ID)
			})
		})

		Convey("When the tolerance window widens after a zero score", func() {
			barely := addParticipant(ctx, st, "P0005", 1)
			addPunch(ctx, st, barely, expected.Add(45*time.Minute)) // outside ±30

			So(svc.ProcessScores(ctx, &day, &day), ShouldBeNil)
			rows, err := svc.ScoresFor(ctx, barely.ID, nil, nil)
			So(err, ShouldBeNil)
			So(rows[0].Score, ShouldEqual, 0)
			So(rows[0].IsLate, ShouldBeTrue)

			widened, err := st.GetEvent(ctx, e.ID)
			So(err, ShouldBeNil)
			widened.ToleranceMinutes = 60
			So(st.UpdateEvent(ctx, widened), ShouldBeNil)

			Convey("Then recalculation flips the punch inside the window", func() {
				So(svc.RecalculateForWindowChange(ctx, e.ID), ShouldBeNil)
				rows, err := svc.ScoresFor(ctx, barely.ID, nil, nil)
				So(err, ShouldBeNil)
				So(len(rows), ShouldEqual, 1)
				So(rows[0].Score, ShouldEqual, 1)
				So(rows[0].IsLate, ShouldBeFalse)
			})
		})

		Convey("Recalculating an unknown event is a no-op", func() {
			So(svc.RecalculateForWindowChange(ctx, 9999), ShouldBeNil)
		})
	})
}

func TestProcessNewScores(t *testing.T) {
	ctx := context.Background()
	day := model.NewDate(2024, time.March, 10)
	now := time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC)

	Convey("Given unprocessed punches from one day", t, func() {
		st := repository.NewMemoryStore(time.UTC)
		svc := service.New(
			service.WithStore(st),
			service.WithLocation(time.UTC),
			service.WithClock(fixedClock(now)),
		)

		addEvent(ctx, st, day, "05:15", 30)
		p := addParticipant(ctx, st, "P0001", 1)
		addPunch(ctx, st, p, time.Date(2024, 3, 10, 5, 10, 0, 0, time.UTC))

		Convey("When the sweep runs", func() {
			So(svc.ProcessNewScores(ctx), ShouldBeNil)

			Convey("Then the day is scored and the punches are marked processed", func() {
				total, err := svc.TotalScore(ctx, p.ID, nil, nil)
				So(err, ShouldBeNil)
				So(total, ShouldEqual, 1)

				dates, err := st.UnprocessedDates(ctx)
				So(err, ShouldBeNil)
				So(dates, ShouldBeEmpty)
			})

			Convey("And a second sweep with nothing new is a no-op", func() {
				So(svc.ProcessNewScores(ctx), ShouldBeNil)
			})
		})
	})
}

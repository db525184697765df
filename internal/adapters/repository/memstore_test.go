package repository_test

import (
	"context"
	"testing"
	"time"

	repository "github.com/mihrab-labs/salahstreak/internal/adapters/repository"
	"github.com/mihrab-labs/salahstreak/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func newEvent(date model.Date, clock string, tol int) model.ScheduledEvent {
	tod, _ := model.ParseTimeOfDay(clock)
	return model.ScheduledEvent{Date: date, ExpectedTime: tod, ToleranceMinutes: tol, Active: true}
}

func TestMemoryStoreScores(t *testing.T) {
	ctx := context.Background()
	day := model.NewDate(2024, time.March, 10)

	Convey("Given a store with one event and one participant", t, func() {
		st := repository.NewMemoryStore(time.UTC)
		e := newEvent(day, "05:15", 30)
		So(st.CreateEvent(ctx, &e), ShouldBeNil)
		p := model.Participant{Code: "P0001", Active: true}
		So(st.CreateParticipant(ctx, &p), ShouldBeNil)

		Convey("When the same pair is upserted twice", func() {
			first := model.ParticipantScore{ParticipantID: p.ID, ScheduledEventID: e.ID, Score: 0, Notes: "No check-in"}
			So(st.UpsertScore(ctx, &first), ShouldBeNil)
			second := model.ParticipantScore{ParticipantID: p.ID, ScheduledEventID: e.ID, Score: 1, Notes: "On time (±3 min)"}
			So(st.UpsertScore(ctx, &second), ShouldBeNil)

			Convey("Then one row exists with the latest values and the original identity", func() {
				rows, err := st.ScoresFor(ctx, p.ID, nil, nil)
				So(err, ShouldBeNil)
				So(len(rows), ShouldEqual, 1)
				So(rows[0].ID, ShouldEqual, first.ID)
				So(rows[0].Score, ShouldEqual, 1)
				So(rows[0].Notes, ShouldEqual, "On time (±3 min)")
			})
		})

		Convey("When scores exist across several days", func() {
			e2 := newEvent(day.AddDays(1), "05:15", 30)
			So(st.CreateEvent(ctx, &e2), ShouldBeNil)
			So(st.UpsertScore(ctx, &model.ParticipantScore{ParticipantID: p.ID, ScheduledEventID: e.ID, Score: 1}), ShouldBeNil)
			So(st.UpsertScore(ctx, &model.ParticipantScore{ParticipantID: p.ID, ScheduledEventID: e2.ID, Score: 1}), ShouldBeNil)

			Convey("Then TotalScore honors the date range", func() {
				total, err := st.TotalScore(ctx, p.ID, nil, nil)
				So(err, ShouldBeNil)
				So(total, ShouldEqual, 2)

				onlyFirst := day
				total, err = st.TotalScore(ctx, p.ID, &onlyFirst, &onlyFirst)
				So(err, ShouldBeNil)
				So(total, ShouldEqual, 1)
			})

			Convey("And SumScoresByParticipant groups the same rows", func() {
				totals, err := st.SumScoresByParticipant(ctx, day, day.AddDays(1))
				So(err, ShouldBeNil)
				So(totals[p.ID], ShouldEqual, 2)
			})

			Convey("And DeleteScoresForEvent removes only that event's rows", func() {
				So(st.DeleteScoresForEvent(ctx, e.ID), ShouldBeNil)
				total, err := st.TotalScore(ctx, p.ID, nil, nil)
				So(err, ShouldBeNil)
				So(total, ShouldEqual, 1)
			})
		})
	})
}

func TestMemoryStoreCheckIns(t *testing.T) {
	ctx := context.Background()

	Convey("Given punches for one participant", t, func() {
		st := repository.NewMemoryStore(time.UTC)
		p := model.Participant{Code: "P0001", Active: true}
		So(st.CreateParticipant(ctx, &p), ShouldBeNil)

		base := time.Date(2024, 3, 10, 5, 0, 0, 0, time.UTC)
		resolved := model.CheckIn{ParticipantID: p.ID, ParticipantRef: "P0001", Timestamp: base.Add(20 * time.Minute), CreatedAt: base}
		byCode := model.CheckIn{ParticipantID: 0, ParticipantRef: "P0001", Timestamp: base, CreatedAt: base}
		other := model.CheckIn{ParticipantID: 999, ParticipantRef: "P0099", Timestamp: base, CreatedAt: base}
		So(st.InsertCheckIn(ctx, &resolved), ShouldBeNil)
		So(st.InsertCheckIn(ctx, &byCode), ShouldBeNil)
		So(st.InsertCheckIn(ctx, &other), ShouldBeNil)

		Convey("CheckInsBetween matches by id or code and orders by timestamp", func() {
			punches, err := st.CheckInsBetween(ctx, p, base.Add(-time.Hour), base.Add(time.Hour))
			So(err, ShouldBeNil)
			So(len(punches), ShouldEqual, 2)
			So(punches[0].ID, ShouldEqual, byCode.ID)
			So(punches[1].ID, ShouldEqual, resolved.ID)
		})

		Convey("The range is half-open", func() {
			punches, err := st.CheckInsBetween(ctx, p, base, base.Add(20*time.Minute))
			So(err, ShouldBeNil)
			So(len(punches), ShouldEqual, 1)
			So(punches[0].ID, ShouldEqual, byCode.ID)
		})

		Convey("UnprocessedDates lists distinct days until punches are marked", func() {
			dates, err := st.UnprocessedDates(ctx)
			So(err, ShouldBeNil)
			So(len(dates), ShouldEqual, 1)
			So(dates[0].String(), ShouldEqual, "2024-03-10")

			So(st.MarkProcessedThrough(ctx, base.Add(time.Hour)), ShouldBeNil)
			dates, err = st.UnprocessedDates(ctx)
			So(err, ShouldBeNil)
			So(dates, ShouldBeEmpty)
		})

		Convey("MarkProcessedThrough leaves punches created after the cutoff", func() {
			laterPunch := model.CheckIn{ParticipantRef: "P0001", Timestamp: base.Add(26 * time.Hour), CreatedAt: base.Add(26 * time.Hour)}
			So(st.InsertCheckIn(ctx, &laterPunch), ShouldBeNil)

			So(st.MarkProcessedThrough(ctx, base.Add(time.Hour)), ShouldBeNil)
			dates, err := st.UnprocessedDates(ctx)
			So(err, ShouldBeNil)
			So(len(dates), ShouldEqual, 1)
			So(dates[0].String(), ShouldEqual, "2024-03-11")
		})
	})
}

func TestMemoryStoreRounds(t *testing.T) {
	ctx := context.Background()
	today := model.NewDate(2024, time.March, 15)

	Convey("Given a store with rounds", t, func() {
		st := repository.NewMemoryStore(time.UTC)

		past := model.Round{Name: "Past", StartDate: today.AddDays(-60), EndDate: today.AddDays(-21), Active: true}
		current := model.Round{Name: "Current", StartDate: today.AddDays(-10), EndDate: today.AddDays(29), Active: true}
		So(st.CreateRound(ctx, &past), ShouldBeNil)
		So(st.CreateRound(ctx, &current), ShouldBeNil)

		Convey("CurrentRound returns the round covering today", func() {
			r, err := st.CurrentRound(ctx, today)
			So(err, ShouldBeNil)
			So(r.ID, ShouldEqual, current.ID)
		})

		Convey("CurrentRound reports not found when no round covers today", func() {
			_, err := st.CurrentRound(ctx, today.AddDays(100))
			So(err, ShouldWrap, repository.ErrNotFound)
		})

		Convey("LatestRound returns the round ending last", func() {
			r, err := st.LatestRound(ctx)
			So(err, ShouldBeNil)
			So(r.ID, ShouldEqual, current.ID)
		})

		Convey("ExpiredRounds returns only active rounds ending before today", func() {
			rounds, err := st.ExpiredRounds(ctx, today)
			So(err, ShouldBeNil)
			So(len(rounds), ShouldEqual, 1)
			So(rounds[0].ID, ShouldEqual, past.ID)
		})

		Convey("CompleteRound is reflected in reads", func() {
			So(st.CompleteRound(ctx, past.ID, time.Now()), ShouldBeNil)
			r, err := st.GetRound(ctx, past.ID)
			So(err, ShouldBeNil)
			So(r.Completed, ShouldBeTrue)
		})

		Convey("InsertWinners rejects a second row for the same pair", func() {
			batch := []model.Winner{
				{RoundID: past.ID, ParticipantID: 1, AgeGroupID: 1, FinalScore: 195, RankInAgeGroup: 1},
				{RoundID: past.ID, ParticipantID: 2, AgeGroupID: 1, FinalScore: 195, RankInAgeGroup: 2},
			}
			So(st.InsertWinners(ctx, batch), ShouldBeNil)

			err := st.InsertWinners(ctx, batch[:1])
			So(err, ShouldWrap, repository.ErrDuplicate)

			Convey("And Winners returns rows ordered by group then rank", func() {
				winners, err := st.Winners(ctx, past.ID, nil)
				So(err, ShouldBeNil)
				So(len(winners), ShouldEqual, 2)
				So(winners[0].RankInAgeGroup, ShouldEqual, 1)
				So(winners[1].RankInAgeGroup, ShouldEqual, 2)
			})
		})
	})
}

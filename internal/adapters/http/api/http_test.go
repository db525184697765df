package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	api "github.com/mihrab-labs/salahstreak/internal/adapters/http/api"
	"github.com/mihrab-labs/salahstreak/internal/adapters/repository"
	service "github.com/mihrab-labs/salahstreak/internal/app"
	"github.com/mihrab-labs/salahstreak/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func newTestServer(ctx context.Context, now time.Time) (*httptest.Server, *service.Service, repository.Store) {
	st := repository.NewMemoryStore(time.UTC)
	svc := service.New(
		service.WithStore(st),
		service.WithLocation(time.UTC),
		service.WithClock(func() time.Time { return now }),
		service.WithRoundPolicy(10, 1, 0.9),
	)
	So(svc.Start(ctx), ShouldBeNil)

	mux := http.NewServeMux()
	api.NewServer(svc).Register(ctx, mux)
	return httptest.NewServer(mux), svc, st
}

func postJSON(ts *httptest.Server, path, body string) *http.Response {
	resp, err := http.Post(ts.URL+path, "application/json", strings.NewReader(body))
	So(err, ShouldBeNil)
	return resp
}

func getJSON(ts *httptest.Server, path string) *http.Response {
	resp, err := http.Get(ts.URL + path)
	So(err, ShouldBeNil)
	return resp
}

func decode[T any](resp *http.Response) T {
	defer resp.Body.Close()
	var out T
	So(json.NewDecoder(resp.Body).Decode(&out), ShouldBeNil)
	return out
}

func TestCheckInEndpoint(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC)

	Convey("Given a running server", t, func() {
		ts, svc, _ := newTestServer(ctx, now)
		defer ts.Close()
		defer svc.Stop()

		Convey("A valid punch is accepted", func() {
			resp := postJSON(ts, "/checkins", `{"record_id":"rec-1","participant_ref":"P0001","ts":"2024-03-10T05:10:00Z","device_id":"gate-1"}`)
			So(resp.StatusCode, ShouldEqual, http.StatusAccepted)
			ack := decode[map[string]any](resp)
			So(ack["status"], ShouldEqual, "accepted")
			So(ack["duplicate"], ShouldEqual, false)

			Convey("And its replay is acknowledged as a duplicate", func() {
				resp := postJSON(ts, "/checkins", `{"record_id":"rec-1","participant_ref":"P0001","ts":"2024-03-10T05:10:00Z","device_id":"gate-1"}`)
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				ack := decode[map[string]any](resp)
				So(ack["duplicate"], ShouldEqual, true)
			})
		})

		Convey("A punch without a record id is rejected", func() {
			resp := postJSON(ts, "/checkins", `{"participant_ref":"P0001","ts":"2024-03-10T05:10:00Z"}`)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("A punch with a non-RFC3339 timestamp is rejected", func() {
			resp := postJSON(ts, "/checkins", `{"record_id":"rec-2","participant_ref":"P0001","ts":"10/03/2024 05:10"}`)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("A GET on the endpoint is not found", func() {
			resp := getJSON(ts, "/checkins")
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestScoringAndRoundEndpoints(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 4, 20, 9, 0, 0, 0, time.UTC)

	Convey("Given a server with reference data", t, func() {
		ts, svc, st := newTestServer(ctx, now)
		defer ts.Close()
		defer svc.Stop()

		resp := postJSON(ts, "/admin/age-groups", `{"name":"Adults","min_age":18,"max_age":120}`)
		So(resp.StatusCode, ShouldEqual, http.StatusCreated)
		groupID := int64(decode[map[string]float64](resp)["id"])

		resp = postJSON(ts, "/admin/participants", `{"code":"P0001","full_name":"Amina Said","age":29,"age_group_id":`+jsonInt(groupID)+`}`)
		So(resp.StatusCode, ShouldEqual, http.StatusCreated)
		participantID := int64(decode[map[string]float64](resp)["id"])

		resp = postJSON(ts, "/admin/events", `[{"date":"2024-04-10","expected_time":"05:15","tolerance_minutes":30,"description":"Fajr"}]`)
		So(resp.StatusCode, ShouldEqual, http.StatusCreated)
		eventID := decode[map[string][]int64](resp)["ids"][0]

		punch := model.CheckIn{
			ParticipantID:  participantID,
			ParticipantRef: "P0001",
			Timestamp:      time.Date(2024, 4, 10, 5, 20, 0, 0, time.UTC),
		}
		So(st.InsertCheckIn(ctx, &punch), ShouldBeNil)

		Convey("A scoring run produces queryable scores", func() {
			resp := postJSON(ts, "/scoring/run?from=2024-04-10&to=2024-04-10", "")
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			resp = getJSON(ts, "/scores?participant="+jsonInt(participantID))
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			rows := decode[[]map[string]any](resp)
			So(len(rows), ShouldEqual, 1)
			So(rows[0]["score"], ShouldEqual, 1)

			resp = getJSON(ts, "/scores/total?participant="+jsonInt(participantID))
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			total := decode[map[string]any](resp)
			So(total["total"], ShouldEqual, 1)
		})

		Convey("Scores for an unknown participant are an empty list", func() {
			resp := getJSON(ts, "/scores?participant=424242")
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			rows := decode[[]map[string]any](resp)
			So(rows, ShouldBeEmpty)
		})

		Convey("The round lifecycle runs over HTTP", func() {
			resp := postJSON(ts, "/rounds", `{"name":"Spring","start_date":"2024-04-05","duration_days":10}`)
			So(resp.StatusCode, ShouldEqual, http.StatusCreated)
			round := decode[map[string]any](resp)
			So(round["end_date"], ShouldEqual, "2024-04-14")
			So(round["eligibility_threshold"], ShouldEqual, 9)
			roundID := jsonInt(int64(round["id"].(float64)))

			Convey("The current round endpoint misses when today is uncovered", func() {
				resp := getJSON(ts, "/rounds/current")
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			})

			Convey("Completing the round commits winners", func() {
				// Give the participant a full score sheet first.
				for day := 5; day <= 14; day++ {
					date := time.Date(2024, 4, day, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
					resp := postJSON(ts, "/admin/events", `[{"date":"`+date+`","expected_time":"06:00","tolerance_minutes":30}]`)
					So(resp.StatusCode, ShouldEqual, http.StatusCreated)
					ids := decode[map[string][]int64](resp)["ids"]
					So(st.UpsertScore(ctx, &model.ParticipantScore{
						ParticipantID:    participantID,
						ScheduledEventID: ids[0],
						Score:            1,
					}), ShouldBeNil)
				}

				resp := getJSON(ts, "/rounds/eligible?round="+roundID)
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				eligible := decode[[]map[string]any](resp)
				So(len(eligible), ShouldEqual, 1)

				resp = postJSON(ts, "/rounds/complete?round="+roundID, "")
				So(resp.StatusCode, ShouldEqual, http.StatusOK)

				resp = getJSON(ts, "/rounds/winners?round="+roundID)
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				winners := decode[[]map[string]any](resp)
				So(len(winners), ShouldEqual, 1)
				So(winners[0]["rank_in_age_group"], ShouldEqual, 1)
			})
		})

		Convey("Adjusting an event tolerance over the admin endpoint", func() {
			resp := postJSON(ts, "/admin/events/tolerance", `{"event_id":`+jsonInt(eventID)+`,"tolerance_minutes":60}`)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			resp = postJSON(ts, "/admin/events/tolerance", `{"event_id":424242,"tolerance_minutes":60}`)
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})

		Convey("The stats endpoint reports the pipeline", func() {
			resp := getJSON(ts, "/stats")
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			stats := decode[map[string]any](resp)
			So(stats["started"], ShouldEqual, true)
		})

		Convey("The health endpoint serves the metrics exposition", func() {
			resp := getJSON(ts, "/healthz")
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
		})
	})
}

func jsonInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

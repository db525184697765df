// Command seed-demo populates a running server with demo reference data
// and streams plausible punch traffic at it: age groups, a participant
// roster, a daily five-event schedule, and check-ins that are mostly on
// time, sometimes late, sometimes missing, with the occasional replayed
// record.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
)

const requestTimeout = 10 * time.Second

var eventTimes = []struct {
	clock     string
	desc      string
	tolerance int
}{
	{"05:15", "Fajr", 30},
	{"13:10", "Dhuhr", 25},
	{"16:45", "Asr", 25},
	{"19:30", "Maghrib", 20},
	{"21:00", "Isha", 30},
}

var ageGroups = []map[string]any{
	{"name": "Cubs", "min_age": 7, "max_age": 12},
	{"name": "Youth", "min_age": 13, "max_age": 17},
	{"name": "Adults", "min_age": 18, "max_age": 120},
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "server base URL")
	participants := flag.Int("participants", 60, "number of participants to create")
	days := flag.Int("days", 7, "number of schedule days ending today")
	attendRate := flag.Float64("attend", 0.9, "probability a participant punches for an event")
	lateRate := flag.Float64("late", 0.08, "probability an attended punch lands outside the window")
	dupRate := flag.Float64("dup", 0.02, "probability a punch record is replayed")
	seed := flag.Int64("seed", 0, "random seed; 0 derives one from the clock")
	flag.Parse()

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(*seed))
	faker := gofakeit.New(uint64(*seed))
	client := &http.Client{Timeout: requestTimeout}

	groupIDs := make([]int64, 0, len(ageGroups))
	for _, g := range ageGroups {
		id, err := postForID(client, *baseURL+"/admin/age-groups", g)
		if err != nil {
			fail("create age group: %v", err)
		}
		groupIDs = append(groupIDs, id)
	}
	fmt.Printf("created %d age groups\n", len(groupIDs))

	type person struct {
		code string
	}
	roster := make([]person, 0, *participants)
	for i := 0; i < *participants; i++ {
		gi := rng.Intn(len(ageGroups))
		minAge := ageGroups[gi]["min_age"].(int)
		maxAge := ageGroups[gi]["max_age"].(int)
		if maxAge > 80 {
			maxAge = 80
		}
		code := fmt.Sprintf("P%04d", i+1)
		_, err := postForID(client, *baseURL+"/admin/participants", map[string]any{
			"code":         code,
			"full_name":    faker.Name(),
			"age":          minAge + rng.Intn(maxAge-minAge+1),
			"age_group_id": groupIDs[gi],
		})
		if err != nil {
			fail("create participant %s: %v", code, err)
		}
		roster = append(roster, person{code: code})
	}
	fmt.Printf("created %d participants\n", len(roster))

	today := time.Now()
	var schedule []map[string]any
	for d := *days - 1; d >= 0; d-- {
		date := today.AddDate(0, 0, -d).Format("2006-01-02")
		for _, et := range eventTimes {
			schedule = append(schedule, map[string]any{
				"date":              date,
				"expected_time":     et.clock,
				"tolerance_minutes": et.tolerance,
				"description":       et.desc,
			})
		}
	}
	if err := post(client, *baseURL+"/admin/events", schedule); err != nil {
		fail("create events: %v", err)
	}
	fmt.Printf("created %d scheduled events\n", len(schedule))

	punches, dups := 0, 0
	for _, ev := range schedule {
		date, _ := time.ParseInLocation("2006-01-02 15:04", ev["date"].(string)+" "+ev["expected_time"].(string), time.Local)
		tol := time.Duration(ev["tolerance_minutes"].(int)) * time.Minute
		for _, p := range roster {
			if rng.Float64() >= *attendRate {
				continue
			}
			var ts time.Time
			if rng.Float64() < *lateRate {
				// Outside the window but on the same day.
				ts = date.Add(tol + time.Duration(5+rng.Intn(55))*time.Minute)
			} else {
				offset := time.Duration(rng.Int63n(int64(2*tol))) - tol
				ts = date.Add(offset)
			}
			body := map[string]any{
				"record_id":       uuid.NewString(),
				"participant_ref": p.code,
				"ts":              ts.Format(time.RFC3339),
				"device_id":       fmt.Sprintf("gate-%d", 1+rng.Intn(3)),
			}
			if err := post(client, *baseURL+"/checkins", body); err != nil {
				fail("post checkin: %v", err)
			}
			punches++
			if rng.Float64() < *dupRate {
				if err := post(client, *baseURL+"/checkins", body); err != nil {
					fail("post duplicate checkin: %v", err)
				}
				dups++
			}
		}
	}
	fmt.Printf("sent %d punches (%d replayed), seed %d\n", punches, dups, *seed)
}

func post(client *http.Client, url string, body any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader(buf))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%s: unexpected status %d", url, resp.StatusCode)
	}
	return nil
}

func postForID(client *http.Client, url string, body any) (int64, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader(buf))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return 0, fmt.Errorf("%s: unexpected status %d", url, resp.StatusCode)
	}
	var out struct {
		ID int64 `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, err
	}
	return out.ID, nil
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	randv2 "math/rand/v2"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/FrontGate/FrontGate/pkg/common"
	"github.com/FrontGate/FrontGate/pkg/config"
	vegeta "github.com/tsenart/vegeta/v12/lib"
)

func generateRandomIPv4() string {
	// Generate a random 32-bit integer
	ipInt := randv2.Uint32()
	// Extract each byte and format as IP address
	return fmt.Sprintf("%d.%d.%d.%d",
		(ipInt>>24)&0xFF,
		(ipInt>>16)&0xFF,
		(ipInt>>8)&0xFF,
		ipInt&0xFF)
}

// eventTargeter emits face-match events: knownPercent of them reference a
// seeded identity, the rest carry no matches and exercise the enrollment
// branch (the dedup window collapses most of those server-side).
func eventTargeter(baseURL string, visitorCount, knownPercent int, rateLimitHeader string) vegeta.Targeter {
	eventsURL := strings.TrimRight(baseURL, "/") + "/gate/" + common.EventsEndpoint

	return func(tgt *vegeta.Target) error {
		if tgt == nil {
			return vegeta.ErrNilTarget
		}

		tgt.Method = http.MethodPost
		tgt.URL = eventsURL

		event := &common.MatchEvent{
			StreamHandle: "loadtest-stream",
			Timestamp:    time.Now().Unix(),
		}

		if knownPercent >= randv2.IntN(100) {
			event.Matches = []common.FaceMatch{{
				Identity: seedIdentity(randv2.IntN(visitorCount)),
				Score:    90.0 + 10.0*randv2.Float64(),
			}}
		}

		body, err := json.Marshal(event)
		if err != nil {
			return err
		}
		tgt.Body = body

		header := http.Header{}
		header.Add(common.HeaderContentType, common.ContentTypeJSON)
		if len(rateLimitHeader) > 0 {
			header.Add(rateLimitHeader, generateRandomIPv4())
		}
		tgt.Header = header

		return nil
	}
}

func load(baseURL string, visitorCount, knownPercent int, getenv func(string) string, freq, durationSeconds int) error {
	cfg := config.New(getenv)

	rate := vegeta.Rate{Freq: freq, Per: time.Second}
	duration := time.Duration(durationSeconds) * time.Second
	targeter := eventTargeter(baseURL, visitorCount, knownPercent, cfg.RateLimitHeader())
	attacker := vegeta.NewAttacker()

	slog.Info("Attacking", "duration", duration.String(), "rate", rate.String())

	var metrics vegeta.Metrics
	for res := range attacker.Attack(targeter, rate, duration, "Open the gates!") {
		metrics.Add(res)
	}
	metrics.Close()

	reporter := vegeta.NewTextReporter(&metrics)
	reporter(os.Stdout)

	return nil
}

package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/psst/core/metrics"
	"github.com/kilianp07/psst/infra/logger"
)

// InfluxConfig holds the InfluxDB v2 endpoint settings.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes run events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
	now      func() time.Time
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
		now:      time.Now,
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink if the health check fails. A run never fails because its metrics
// backend is down.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.RunSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordStage writes a sced_stage point.
func (s *InfluxSink) RecordStage(ev coremetrics.StageEvent) error {
	p := write.NewPointWithMeasurement("sced_stage").
		AddTag("run_id", ev.RunID).
		AddTag("stage", ev.Stage).
		AddField("duration_ms", round3(float64(ev.Duration)/float64(time.Millisecond))).
		AddField("ok", ev.Err == nil).
		SetTime(s.now())
	return s.write(p)
}

// RecordProblem writes a sced_problem point.
func (s *InfluxSink) RecordProblem(ev coremetrics.ProblemEvent) error {
	p := write.NewPointWithMeasurement("sced_problem").
		AddTag("run_id", ev.RunID).
		AddField("columns", ev.Columns).
		AddField("rows", ev.Rows).
		AddField("periods", ev.Periods).
		SetTime(s.now())
	return s.write(p)
}

// RecordSolve writes a sced_solve point.
func (s *InfluxSink) RecordSolve(ev coremetrics.SolveEvent) error {
	p := write.NewPointWithMeasurement("sced_solve").
		AddTag("run_id", ev.RunID).
		AddTag("backend", ev.Backend).
		AddTag("status", ev.Status).
		AddField("objective", round3(ev.Objective)).
		SetTime(s.now())
	return s.write(p)
}

// Flush closes the client; points are written synchronously.
func (s *InfluxSink) Flush() error {
	s.client.Close()
	return nil
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

package main

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/DickTrevelyan/shield-stake-estate/internal/estate"
	"github.com/DickTrevelyan/shield-stake-estate/internal/nonce"
	"github.com/DickTrevelyan/shield-stake-estate/internal/property"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{estate.ErrInvalidSignature, http.StatusUnauthorized},
		{nonce.ErrAlreadyUsed, http.StatusConflict},
		{property.ErrOnlyOwner, http.StatusForbidden},
		{property.ErrDoesNotExist, http.StatusNotFound},
		{property.ErrNotActive, http.StatusBadRequest},
		{errors.New("anything else"), http.StatusBadRequest},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Errorf("statusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(3, 1, time.Hour)
	for i := 0; i < 3; i++ {
		if !rl.Allow() {
			t.Fatalf("request %d denied with tokens remaining", i)
		}
	}
	if rl.Allow() {
		t.Error("request allowed with an empty bucket")
	}
}

func TestMetricsCollector(t *testing.T) {
	m := NewMetricsCollector()
	m.IncrementCounter(MetricStakeCount)
	m.IncrementCounter(MetricStakeCount)
	m.SetGauge("properties", 5)
	m.RecordHistogram(MetricProofVerifyTime, 12.5)

	summary := m.Summary()
	counters, ok := summary["counters"].(map[string]int64)
	if !ok {
		t.Fatalf("summary has no counters: %v", summary)
	}
	if counters[MetricStakeCount] != 2 {
		t.Errorf("stake counter %d, want 2", counters[MetricStakeCount])
	}
}

func TestHealthChecker(t *testing.T) {
	hc := NewHealthChecker("test")
	hc.RegisterComponent("good", func() error { return nil })
	health := hc.CheckHealth()
	if health.OverallStatus != Healthy {
		t.Errorf("overall %s, want healthy", health.OverallStatus)
	}

	hc.RegisterComponent("bad", func() error { return errors.New("down") })
	health = hc.CheckHealth()
	if health.OverallStatus != Unhealthy {
		t.Errorf("overall %s, want unhealthy", health.OverallStatus)
	}
}

package main

import (
	"testing"

	"github.com/urfave/cli"

	"spread-arbitrage/executor"
	"spread-arbitrage/trading"
)

func TestExitError(t *testing.T) {
	tests := []struct {
		status executor.Status
		want   int
	}{
		{executor.StatusSkipped, 0},
		{executor.StatusCompleted, 0},
		{executor.StatusAborted, 1},
		{executor.StatusPartialFailure, 2},
	}

	for _, tt := range tests {
		err := exitError(executor.Result{Status: tt.status, Message: tt.status.String()})
		if tt.want == 0 {
			if err != nil {
				t.Errorf("%s: error = %v, want nil", tt.status, err)
			}
			continue
		}
		coder, ok := err.(cli.ExitCoder)
		if !ok {
			t.Errorf("%s: error %v is not an ExitCoder", tt.status, err)
			continue
		}
		if coder.ExitCode() != tt.want {
			t.Errorf("%s: exit code = %d, want %d", tt.status, coder.ExitCode(), tt.want)
		}
	}
}

func TestCheckOrderLookup(t *testing.T) {
	tests := []struct {
		name    string
		venue   trading.Venue
		id      string
		dryRun  bool
		wantErr bool
	}{
		{"live kraken", trading.Kraken, "OQCLML-BW3P3-BUCMWZ", false, false},
		{"live bitstamp", trading.Bitstamp, "1458532827766784", false, false},
		{"missing id", trading.Kraken, "", false, true},
		{"unknown venue", trading.Venue("binance"), "1", false, true},
		{"paper order", trading.Kraken, "paper-0b8f", true, true},
	}

	for _, tt := range tests {
		err := checkOrderLookup(tt.venue, tt.id, tt.dryRun)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSpec(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "08:00", want: "0 8 * * *"},
		{in: "7:05", want: "5 7 * * *"},
		{in: "23:59", want: "59 23 * * *"},
		{in: "0 6 * * 1-5", want: "0 6 * * 1-5"},
		{in: "@daily", want: "@daily"},
		{in: "24:00", wantErr: true},
		{in: "every morning", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSpec(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewRejectsUnknownTimezone(t *testing.T) {
	_, err := New("Mars/Olympus", zerolog.Nop())
	require.Error(t, err)
}

func TestNext(t *testing.T) {
	s, err := New("UTC", zerolog.Nop())
	require.NoError(t, err)
	assert.True(t, s.Next().IsZero())

	require.NoError(t, s.Add(context.Background(), "08:00", func(context.Context) error { return nil }))
	next := s.Next()
	assert.Equal(t, 8, next.Hour())
	assert.Equal(t, 0, next.Minute())
	assert.True(t, next.After(time.Now()))
}

func TestTriggerSkipsOverlap(t *testing.T) {
	s, err := New("UTC", zerolog.Nop())
	require.NoError(t, err)

	release := make(chan struct{})
	started := make(chan struct{})
	var calls atomic.Int32
	job := func(context.Context) error {
		calls.Add(1)
		close(started)
		<-release
		return errors.New("boom")
	}

	done := make(chan struct{})
	go func() {
		s.trigger(context.Background(), job)
		close(done)
	}()
	<-started

	s.trigger(context.Background(), job)
	assert.Equal(t, int32(1), calls.Load())

	close(release)
	<-done
	assert.False(t, s.running)
}

func TestRunStopsOnCancel(t *testing.T) {
	s, err := New("", zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(finished)
	}()
	cancel()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

package domain

import (
	"testing"
	"time"
)

func TestInboundEvent_Time(t *testing.T) {
	ev := InboundEvent{Timestamp: 1741944413000}
	want := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	if got := ev.Time(); !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if !(InboundEvent{}).Time().IsZero() {
		t.Error("missing timestamp should give the zero time")
	}
}

func TestSource_PushTarget(t *testing.T) {
	cases := []struct {
		src  Source
		want string
	}{
		{Source{UserID: "U1", GroupID: "C1"}, "U1"},
		{Source{GroupID: "C1", RoomID: "R1"}, "C1"},
		{Source{RoomID: "R1"}, "R1"},
		{Source{}, ""},
	}
	for _, tc := range cases {
		if got := tc.src.PushTarget(); got != tc.want {
			t.Errorf("%+v: expected %q, got %q", tc.src, tc.want, got)
		}
	}
}

package di

import (
	"reflect"
	"testing"
)

func TestNormalizeWatchlist(t *testing.T) {
	got, err := normalizeWatchlist([]string{" aapl", "^dji", "AAPL", "brk-b"})
	if err != nil {
		t.Fatalf("normalizeWatchlist: %v", err)
	}
	want := []string{"AAPL", "^DJI", "BRK-B"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestNormalizeWatchlist_Invalid(t *testing.T) {
	for _, raw := range [][]string{{"AAPL", ""}, {"not a ticker"}} {
		if _, err := normalizeWatchlist(raw); err == nil {
			t.Errorf("%q: want error", raw)
		}
	}
}

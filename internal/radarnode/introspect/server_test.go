package introspect

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakeCounters struct{ c Counters }

func (f fakeCounters) Counters() Counters { return f.c }

type fakeTracks struct{ t []TrackInfo }

func (f fakeTracks) Tracks() []TrackInfo { return f.t }

func TestHandleCountersReturnsJSON(t *testing.T) {
	srv := New(fakeCounters{c: Counters{FramesReceived: 42, CrcFailures: 1}}, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/counters", nil)
	rec := httptest.NewRecorder()

	srv.ServeMux().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got Counters
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.FramesReceived != 42 || got.CrcFailures != 1 {
		t.Fatalf("got %+v", got)
	}
}

func TestHandleTracksEmptyWhenNilSource(t *testing.T) {
	srv := New(fakeCounters{}, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/tracks", nil)
	rec := httptest.NewRecorder()

	srv.ServeMux().ServeHTTP(rec, req)

	var got []TrackInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("want empty track list, got %v", got)
	}
}

func TestHandleTracksReturnsSource(t *testing.T) {
	srv := New(fakeCounters{}, fakeTracks{t: []TrackInfo{{ID: "abc", State: "Tracked"}}}, nil)
	req := httptest.NewRequest(http.MethodGet, "/tracks", nil)
	rec := httptest.NewRecorder()

	srv.ServeMux().ServeHTTP(rec, req)

	var got []TrackInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].ID != "abc" {
		t.Fatalf("got %v", got)
	}
}

func TestHandleCountersRejectsNonGet(t *testing.T) {
	srv := New(fakeCounters{}, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/counters", nil)
	rec := httptest.NewRecorder()

	srv.ServeMux().ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

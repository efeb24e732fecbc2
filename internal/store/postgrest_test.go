package store

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	postgrest "github.com/supabase-community/postgrest-go"

	"github.com/thisisnajafi/sarvcast-backend-sub015/models"
)

func newTestPostgREST(t *testing.T, handler http.HandlerFunc) *PostgREST {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := postgrest.NewClient(srv.URL+"/rest/v1", "public", map[string]string{
		"apikey":        "test-key",
		"Authorization": "Bearer test-key",
	})
	p, err := NewPostgREST(client)
	if err != nil {
		t.Fatalf("NewPostgREST: %v", err)
	}
	return p
}

func TestPostgRESTGetEpisode(t *testing.T) {
	p := newTestPostgREST(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/episodes" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("apikey") != "test-key" {
			t.Errorf("missing api key header")
		}
		switch r.URL.Query().Get("id") {
		case "eq.12":
			_, _ = io.WriteString(w, `[{"id":12,"title":"Lion","duration":300,"use_image_timeline":true}]`)
		default:
			_, _ = io.WriteString(w, `[]`)
		}
	})

	ep, err := p.GetEpisode(context.Background(), 12)
	if err != nil {
		t.Fatalf("GetEpisode: %v", err)
	}
	if ep.ID != 12 || ep.Duration != 300 || !ep.UseImageTimeline {
		t.Fatalf("unexpected episode %+v", ep)
	}

	if _, err := p.GetEpisode(context.Background(), 13); !errors.Is(err, ErrEpisodeNotFound) {
		t.Fatalf("expected ErrEpisodeNotFound, got %v", err)
	}
}

func TestPostgRESTGetTimelineOrdersByImageOrder(t *testing.T) {
	p := newTestPostgREST(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rest/v1/episodes":
			_, _ = io.WriteString(w, `[{"id":1,"duration":20}]`)
		case "/rest/v1/image_timelines":
			if got := r.URL.Query().Get("order"); got != "image_order.asc.nullslast" {
				t.Errorf("unexpected order param %q", got)
			}
			if got := r.URL.Query().Get("episode_id"); got != "eq.1" {
				t.Errorf("unexpected episode filter %q", got)
			}
			_, _ = io.WriteString(w, `[{"id":"6f1d2b8e-3c1a-4c5e-9a47-0e7f1f0c2a11","episode_id":1,"start_time":0,"end_time":20,"image_url":"https://cdn.sarvcast.com/a.jpg","image_order":0,"is_key_frame":true}]`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	rows, err := p.GetTimeline(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetTimeline: %v", err)
	}
	if len(rows) != 1 || rows[0].EndTime != 20 || !rows[0].IsKeyFrame {
		t.Fatalf("unexpected rows %+v", rows)
	}
}

func TestPostgRESTReplaceTimelineCallsRPC(t *testing.T) {
	var got struct {
		EpisodeID int64                  `json:"p_episode_id"`
		Rows      []models.TimelineImage `json:"p_rows"`
	}
	p := newTestPostgREST(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/rest/v1/rpc/replace_episode_timeline" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode rpc body: %v", err)
		}
		_, _ = io.WriteString(w, "2")
	})

	rows := sampleRows(4, "https://cdn.sarvcast.com/a.jpg", "https://cdn.sarvcast.com/b.jpg")
	if err := p.ReplaceTimeline(context.Background(), 4, rows); err != nil {
		t.Fatalf("ReplaceTimeline: %v", err)
	}
	if got.EpisodeID != 4 || len(got.Rows) != 2 || got.Rows[1].ImageURL != "https://cdn.sarvcast.com/b.jpg" {
		t.Fatalf("unexpected rpc payload %+v", got)
	}
}

func TestPostgRESTReplaceTimelineErrors(t *testing.T) {
	p := newTestPostgREST(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.WriteHeader(http.StatusBadRequest)
		if strings.Contains(string(body), `"p_episode_id":404`) {
			_, _ = io.WriteString(w, `{"code":"P0002","message":"episode 404 not found"}`)
			return
		}
		_, _ = io.WriteString(w, `{"code":"23505","message":"duplicate key value"}`)
	})

	err := p.ReplaceTimeline(context.Background(), 404, nil)
	if !errors.Is(err, ErrEpisodeNotFound) {
		t.Fatalf("expected ErrEpisodeNotFound, got %v", err)
	}

	err = p.ReplaceTimeline(context.Background(), 1, sampleRows(1, "https://cdn.sarvcast.com/a.jpg"))
	if err == nil || !strings.Contains(err.Error(), "23505") {
		t.Fatalf("expected duplicate key error, got %v", err)
	}
}

func TestPostgRESTReplaceResetsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := postgrest.NewClient(srv.URL+"/rest/v1", "public", nil)
	srv.Close()

	p, err := NewPostgREST(client)
	if err != nil {
		t.Fatalf("NewPostgREST: %v", err)
	}
	if err := p.ReplaceTimeline(context.Background(), 1, nil); err == nil {
		t.Fatal("expected transport error")
	}
	if client.ClientError != nil {
		t.Fatalf("client error must be reset after a failed rpc, got %v", client.ClientError)
	}
}

func TestRPCErrorIgnoresPlainResults(t *testing.T) {
	for _, body := range []string{"", "3", "[]", "null", `{"unrelated":true}`} {
		if err := rpcError(body); err != nil {
			t.Fatalf("rpcError(%q) = %v", body, err)
		}
	}
}

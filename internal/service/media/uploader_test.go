package media

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"ai-interview-session-service/internal/backend"
	"ai-interview-session-service/internal/models"
)

func TestFrameUploader_Upload(t *testing.T) {
	var (
		gotToken  string
		gotFields map[string]string
		gotName   string
		gotData   []byte
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat/get-csrf-token/", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "tok-123", Path: "/"})
		w.Write([]byte(`{"csrfToken":"tok-123"}`))
	})
	mux.HandleFunc("/api/chat/save-frame/", func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-CSRFToken")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotFields = map[string]string{
			"job_id":       r.FormValue("job_id"),
			"candidate_id": r.FormValue("candidate_id"),
			"timestamp":    r.FormValue("timestamp"),
		}
		file, header, err := r.FormFile("frame")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		gotName = header.Filename
		gotData, _ = io.ReadAll(file)
		w.WriteHeader(http.StatusCreated)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, err := backend.New(srv.URL, "/api/chat/get-csrf-token/", zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	u := NewFrameUploader(client, "/api/chat/save-frame/")

	ts := time.Date(2024, 3, 9, 13, 5, 7, 123000000, time.UTC)
	err = u.Upload(context.Background(), models.FrameSample{
		Image:       []byte{0xff, 0xd8, 0xff},
		Timestamp:   ts,
		JobID:       "job-1",
		CandidateID: "cand-1",
	})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if gotToken != "tok-123" {
		t.Errorf("expected CSRF header, got %q", gotToken)
	}
	if gotFields["job_id"] != "job-1" || gotFields["candidate_id"] != "cand-1" {
		t.Errorf("unexpected fields %v", gotFields)
	}
	if gotFields["timestamp"] != "2024-03-09T13:05:07.123Z" {
		t.Errorf("unexpected timestamp %q", gotFields["timestamp"])
	}
	if gotName != "frame_1709989507123.jpg" {
		t.Errorf("unexpected filename %q", gotName)
	}
	if len(gotData) != 3 {
		t.Errorf("unexpected frame bytes %v", gotData)
	}
}

func TestFrameUploader_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Write([]byte(`{}`))
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"No frame provided"}`))
	}))
	defer srv.Close()

	client, err := backend.New(srv.URL, "/csrf", zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	u := NewFrameUploader(client, "/save")

	err = u.Upload(context.Background(), models.FrameSample{Timestamp: time.Now()})
	apiErr, ok := err.(*backend.APIError)
	if !ok {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Message != "No frame provided" {
		t.Errorf("unexpected error %+v", apiErr)
	}
}

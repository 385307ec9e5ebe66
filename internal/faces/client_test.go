package faces

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/your-org/visora/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(config.FaceDBConfig{BaseURL: server.URL + "/", Token: "test-token", Timeout: 2 * time.Second})
}

func TestRegisterPerson(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v2/person" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("token") != "test-token" {
			t.Errorf("missing token header, got %q", r.Header.Get("token"))
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("name"); got != "Ana" {
			t.Errorf("name = %q", got)
		}
		if got := r.FormValue("store"); got != "1" {
			t.Errorf("store = %q", got)
		}
		if got := r.FormValue("collections"); got != "Family" {
			t.Errorf("collections = %q", got)
		}
		file, _, err := r.FormFile("photos")
		if err != nil {
			t.Fatalf("photos file missing: %v", err)
		}
		data, _ := io.ReadAll(file)
		if string(data) != "jpeg-bytes" {
			t.Errorf("unexpected photo payload %q", data)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"uuid":"person-123","name":"Ana"}`))
	})

	resp, err := client.RegisterPerson(context.Background(), "Ana", "Family", []byte("jpeg-bytes"))
	if err != nil {
		t.Fatalf("RegisterPerson: %v", err)
	}
	if resp.UUID != "person-123" {
		t.Errorf("expected uuid person-123, got %q", resp.UUID)
	}
}

func TestSearchPhoto(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/photo/search/v2" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if _, _, err := r.FormFile("photo"); err != nil {
			t.Fatalf("photo file missing: %v", err)
		}
		w.Write([]byte(`[{"name":"Ana","probability":0.82,"uuid":"p1"},{"name":"Ben","probability":0.4,"uuid":"p2"}]`))
	})

	got, err := client.SearchPhoto(context.Background(), []byte("jpeg"))
	if err != nil {
		t.Fatalf("SearchPhoto: %v", err)
	}
	if len(got) != 2 || got[0].Name != "Ana" || got[0].Probability != 0.82 || got[1].UUID != "p2" {
		t.Errorf("unexpected candidates: %+v", got)
	}
}

func TestSearchPhoto_NoMatch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	got, err := client.SearchPhoto(context.Background(), []byte("jpeg"))
	if err != nil {
		t.Fatalf("SearchPhoto: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no candidates, got %+v", got)
	}
}

func TestRemoteError_Verbatim(t *testing.T) {
	const body = `{"status":"failure","message":"Can't find faces on the image"}`
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(body))
	})

	_, err := client.RegisterPerson(context.Background(), "Ana", "VisoraAgent", []byte("jpeg"))
	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("expected *RemoteError, got %T: %v", err, err)
	}
	if remote.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", remote.StatusCode)
	}
	if remote.Error() != body {
		t.Errorf("expected body verbatim, got %q", remote.Error())
	}
}

func TestRemoteError_EmptyBody(t *testing.T) {
	err := &RemoteError{StatusCode: 503}
	if err.Error() != "face database returned status 503" {
		t.Errorf("unexpected text %q", err.Error())
	}
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(config.FaceDBConfig{BaseURL: server.URL, Token: "t", Timeout: 50 * time.Millisecond})
	if _, err := client.SearchPhoto(context.Background(), []byte("jpeg")); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestClient_Configured(t *testing.T) {
	if NewClient(config.FaceDBConfig{}).Configured() {
		t.Error("client without token should not be configured")
	}
	if !NewClient(config.FaceDBConfig{Token: "x"}).Configured() {
		t.Error("client with token should be configured")
	}
}

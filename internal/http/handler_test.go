package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"inspection-service/internal/domain/inspection"
	"inspection-service/internal/repository"
	"inspection-service/internal/service"
)

type stubRecognizer struct {
	plates []string
	err    error
}

func (s *stubRecognizer) Recognize(context.Context, inspection.Image) ([]string, error) {
	return s.plates, s.err
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

type testServer struct {
	router *gin.Engine
	hub    *EventHub
	rec    *stubRecognizer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	now := func() time.Time { return time.Date(2024, 3, 7, 12, 0, 0, 0, time.UTC) }
	hub := NewEventHub(zerolog.Nop())
	rec := &stubRecognizer{}
	svc := service.NewInspectionService(
		repository.NewSessionRepository(now),
		[]inspection.Site{{ID: "london", Name: "London"}, {ID: "helsinki", Name: "Helsinki"}},
		service.Collaborators{Recognizer: rec, Publisher: hub, Now: now, CompanyName: "goldbecksolar"},
		zerolog.Nop(),
	)

	r := gin.New()
	r.Use(RequestLogger(zerolog.Nop()))
	NewHandler(svc, hub, zerolog.Nop()).Register(r)
	return &testServer{router: r, hub: hub, rec: rec}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	if v != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, v); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
	return env
}

func (s *testServer) createSession(t *testing.T) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/sessions", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create session: %d %s", w.Code, w.Body.String())
	}
	var sess service.SessionView
	decode(t, w, &sess)
	return sess.ID.String()
}

func pngData(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 20, 10))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func (s *testServer) uploadMultipart(t *testing.T, path string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "photo.png")
	if err != nil {
		t.Fatal(err)
	}
	part.Write(data)
	mw.Close()

	req := httptest.NewRequest(http.MethodPut, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestHealthAndSites(t *testing.T) {
	s := newTestServer(t)

	if w := s.do(t, http.MethodGet, "/healthz", nil); w.Code != http.StatusOK {
		t.Errorf("healthz = %d", w.Code)
	}

	w := s.do(t, http.MethodGet, "/api/v1/sites", nil)
	var sites []inspection.Site
	decode(t, w, &sites)
	if len(sites) != 2 || sites[0].ID != "london" {
		t.Errorf("sites = %+v", sites)
	}
}

func TestCategoriesAndCloseSession(t *testing.T) {
	s := newTestServer(t)

	var cats []service.CategoryInfo
	decode(t, s.do(t, http.MethodGet, "/api/v1/categories", nil), &cats)
	if len(cats) != 4 || cats[0].ID != inspection.CategoryTruckPlate || cats[0].Label != "Truck License Plate" {
		t.Errorf("categories = %+v", cats)
	}

	id := s.createSession(t)
	if w := s.do(t, http.MethodDelete, "/api/v1/sessions/"+id, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d %s", w.Code, w.Body.String())
	}
	if w := s.do(t, http.MethodGet, "/api/v1/sessions/"+id, nil); w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d", w.Code)
	}
	if w := s.do(t, http.MethodDelete, "/api/v1/sessions/"+id, nil); w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d", w.Code)
	}
}

func TestSessionLookup(t *testing.T) {
	s := newTestServer(t)
	id := s.createSession(t)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"existing", "/api/v1/sessions/" + id, http.StatusOK},
		{"malformed id", "/api/v1/sessions/not-a-uuid", http.StatusBadRequest},
		{"unknown id", "/api/v1/sessions/2f1c1c9e-8f6b-4d1a-9d6e-3c1a2b3c4d5e", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := s.do(t, http.MethodGet, tt.path, nil); w.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestPhotoUploadAndDownload(t *testing.T) {
	s := newTestServer(t)
	id := s.createSession(t)
	base := "/api/v1/sessions/" + id + "/sites/london/photos/"
	data := pngData(t)

	w := s.uploadMultipart(t, base+"document", data)
	if w.Code != http.StatusOK {
		t.Fatalf("multipart upload = %d %s", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodGet, base+"document", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("download = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != inspection.ContentTypePNG {
		t.Errorf("content type = %q", ct)
	}
	if !bytes.Equal(w.Body.Bytes(), data) {
		t.Error("downloaded bytes differ from upload")
	}

	uri := inspection.Image{ContentType: inspection.ContentTypePNG, Data: data}.DataURI()
	if w := s.do(t, http.MethodPut, base+"truck", gin.H{"data_uri": uri}); w.Code != http.StatusOK {
		t.Fatalf("data uri upload = %d %s", w.Code, w.Body.String())
	}

	var photos map[string]inspection.Image
	decode(t, s.do(t, http.MethodGet, "/api/v1/sessions/"+id+"/sites/london/photos", nil), &photos)
	if len(photos) != 2 {
		t.Errorf("photos = %v", photos)
	}

	if w := s.uploadMultipart(t, base+"document", []byte("not an image")); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad upload = %d", w.Code)
	}
	if w := s.do(t, http.MethodGet, base+"bumper", nil); w.Code != http.StatusBadRequest {
		t.Errorf("unknown category = %d", w.Code)
	}
	if w := s.do(t, http.MethodGet, "/api/v1/sessions/"+id+"/sites/helsinki/photos/document", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing photo = %d", w.Code)
	}
}

func TestRecognizePlate(t *testing.T) {
	s := newTestServer(t)
	id := s.createSession(t)
	path := "/api/v1/sessions/" + id + "/sites/london/photos/truck-plate"
	if w := s.uploadMultipart(t, path, pngData(t)); w.Code != http.StatusOK {
		t.Fatalf("upload = %d", w.Code)
	}

	tests := []struct {
		name      string
		plates    []string
		err       error
		wantCode  int
		wantError string
	}{
		{"detected", []string{"ab12cde"}, nil, http.StatusOK, ""},
		{"nothing found", nil, nil, http.StatusUnprocessableEntity, "No license plate detected in the image"},
		{"provider error", nil, errors.New("upstream timeout"), http.StatusBadGateway, "Error processing image: upstream timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.rec.plates, s.rec.err = tt.plates, tt.err
			w := s.do(t, http.MethodPost, path+"/recognize", nil)
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.wantCode, w.Body.String())
			}
			var res service.RecognitionResult
			env := decode(t, w, &res)
			if env.Error != tt.wantError {
				t.Errorf("error = %q, want %q", env.Error, tt.wantError)
			}
			if tt.wantCode == http.StatusOK && res.Session.Report.LicensePlateTruck != "AB12CDE" {
				t.Errorf("report plate = %q", res.Session.Report.LicensePlateTruck)
			}
		})
	}

	var plates map[string]string
	decode(t, s.do(t, http.MethodGet, "/api/v1/sessions/"+id+"/sites/london/plates", nil), &plates)
	if plates["truck-plate"] != "AB12CDE" {
		t.Errorf("plates = %v, failed recognitions must keep the last plate", plates)
	}
}

func TestReportEndpoints(t *testing.T) {
	s := newTestServer(t)
	id := s.createSession(t)
	base := "/api/v1/sessions/" + id

	var report inspection.Report
	w := s.do(t, http.MethodPatch, base+"/report", map[string]string{"supplier": "ACME", "comment0": "ok"})
	if w.Code != http.StatusOK {
		t.Fatalf("patch = %d %s", w.Code, w.Body.String())
	}
	decode(t, w, &report)
	if report.Supplier != "ACME" || report.Checks[0].Comment != "ok" || report.Date != "2024-03-07" {
		t.Errorf("report = %+v", report)
	}

	if w := s.do(t, http.MethodPatch, base+"/report", map[string]string{"colour": "red"}); w.Code != http.StatusBadRequest {
		t.Errorf("unknown field = %d", w.Code)
	}

	w = s.do(t, http.MethodPost, base+"/report/checks/3/toggle", nil)
	decode(t, w, &report)
	if !report.Checks[3].OK {
		t.Error("check 3 not toggled")
	}
	for _, idx := range []string{"7", "-1", "x"} {
		if w := s.do(t, http.MethodPost, base+"/report/checks/"+idx+"/toggle", nil); w.Code != http.StatusBadRequest {
			t.Errorf("toggle %s = %d", idx, w.Code)
		}
	}

	if w := s.do(t, http.MethodPut, base+"/site", gin.H{"site": "helsinki"}); w.Code != http.StatusOK {
		t.Errorf("select site = %d", w.Code)
	}
	if w := s.do(t, http.MethodPut, base+"/site", gin.H{"site": "paris"}); w.Code != http.StatusNotFound {
		t.Errorf("select unknown site = %d", w.Code)
	}

	w = s.do(t, http.MethodGet, base+"/report", nil)
	var got struct {
		Report inspection.Report `json:"report"`
		Items  []string          `json:"checklist_items"`
	}
	decode(t, w, &got)
	if got.Report.Supplier != "ACME" || len(got.Items) != inspection.ChecklistSize {
		t.Errorf("report view = %+v", got)
	}
}

func TestExport(t *testing.T) {
	s := newTestServer(t)
	id := s.createSession(t)

	w := s.do(t, http.MethodGet, "/api/v1/sessions/"+id+"/export/csv", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export = %d %s", w.Code, w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "inspection-report_london_2024-03-07.csv") {
		t.Errorf("content disposition = %q", cd)
	}
	if !strings.HasPrefix(w.Body.String(), "Field,Value") {
		t.Errorf("csv body = %q", w.Body.String())
	}

	if w := s.do(t, http.MethodGet, "/api/v1/sessions/"+id+"/export/docx", nil); w.Code != http.StatusBadRequest {
		t.Errorf("unknown format = %d", w.Code)
	}
}

func TestEventStream(t *testing.T) {
	s := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.hub.Run(ctx)

	srv := httptest.NewServer(s.router)
	defer srv.Close()

	id := s.createSession(t)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/sessions/" + id + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for s.hub.Subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if w := s.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/report/checks/0/toggle", nil); w.Code != http.StatusOK {
		t.Fatalf("toggle = %d", w.Code)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg struct {
		SessionID string `json:"session_id"`
		Event     string `json:"event"`
		Payload   struct {
			Index int `json:"index"`
		} `json:"payload"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.SessionID != id || msg.Event != "check_toggled" || msg.Payload.Index != 0 {
		t.Errorf("message = %+v", msg)
	}
}

package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/659954771/meal-app/internal/auth"
	"github.com/659954771/meal-app/internal/database"
	"github.com/659954771/meal-app/internal/meals"
	"github.com/659954771/meal-app/internal/metrics"
	"github.com/659954771/meal-app/internal/people"
	"github.com/659954771/meal-app/internal/reports"
	"github.com/659954771/meal-app/internal/sheets"
	sqlite "github.com/glebarez/sqlite"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testAdminPIN = "8888"

var testDatabaseSequence int64

type testServer struct {
	handler http.Handler
	now     time.Time
	board   *BoardDispatcher
	zone    *time.Location
	cookies []*http.Cookie
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:meal_server_%d?mode=memory&cache=shared", atomic.AddInt64(&testDatabaseSequence, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := database.Migrate(db, zap.NewNop()); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	schedule, err := meals.NewSchedule(meals.ScheduleConfig{
		UTCOffsetHours:  7,
		LunchDeadline:   "09:00",
		DinnerDeadline:  "15:00",
		RolloverHour:    15,
		LunchLateSlots:  []string{"12:30", "13:00"},
		DinnerLateSlots: []string{"19:00", "20:00"},
	})
	if err != nil {
		t.Fatalf("failed to build schedule: %v", err)
	}

	server := &testServer{
		zone:  schedule.Location(),
		board: NewBoardDispatcher(),
	}
	// Monday 2026-10-19 07:00 local.
	server.now = time.Date(2026, 10, 19, 7, 0, 0, 0, schedule.Location())
	clock := func() time.Time { return server.now }

	mealsService, err := meals.NewService(meals.ServiceConfig{
		Database:   db,
		Clock:      clock,
		IDProvider: meals.NewUUIDProvider(),
		Schedule:   schedule,
		OnChange:   server.board.PublishChange,
	})
	if err != nil {
		t.Fatalf("failed to build meals service: %v", err)
	}
	peopleService, err := people.NewService(people.ServiceConfig{
		Database: db,
		Clock:    clock,
		Location: schedule.Location(),
		OnRemove: mealsService.InvalidateIdentity,
	})
	if err != nil {
		t.Fatalf("failed to build people service: %v", err)
	}
	reportService, err := reports.NewService(reports.ServiceConfig{
		Roster:   peopleService,
		Actions:  mealsService,
		Location: schedule.Location(),
	})
	if err != nil {
		t.Fatalf("failed to build report service: %v", err)
	}
	importer, err := sheets.NewImporter(peopleService, mealsService, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to build importer: %v", err)
	}
	sessions, err := auth.NewSessionManager(auth.SessionManagerConfig{
		SigningSecret: []byte("test-signing-secret"),
		CookieName:    "meal_session",
		TTL:           30 * 24 * time.Hour,
		Clock:         clock,
	})
	if err != nil {
		t.Fatalf("failed to build session manager: %v", err)
	}
	gate, err := auth.NewAdminGate(testAdminPIN)
	if err != nil {
		t.Fatalf("failed to build admin gate: %v", err)
	}
	registry := prometheus.NewRegistry()

	handler, err := NewHTTPHandler(Dependencies{
		People:   peopleService,
		Meals:    mealsService,
		Reports:  reportService,
		Importer: importer,
		Sessions: sessions,
		Admin:    gate,
		Board:    server.board,
		Metrics:  metrics.New(registry),
		Gatherer: registry,
		Clock:    clock,
		Logger:   zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("failed to construct http handler: %v", err)
	}
	server.handler = handler
	return server
}

func (s *testServer) at(hour, minute int) {
	s.now = time.Date(2026, 10, 19, hour, minute, 0, 0, s.zone)
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	request := httptest.NewRequest(method, path, reader)
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		request.Header.Set(key, value)
	}
	for _, cookie := range s.cookies {
		request.AddCookie(cookie)
	}
	recorder := httptest.NewRecorder()
	s.handler.ServeHTTP(recorder, request)
	if cookies := recorder.Result().Cookies(); len(cookies) > 0 {
		s.cookies = nil
		for _, cookie := range cookies {
			if cookie.MaxAge >= 0 && cookie.Value != "" {
				s.cookies = append(s.cookies, cookie)
			}
		}
	}
	return recorder
}

func (s *testServer) admin(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return s.do(t, method, path, body, map[string]string{auth.AdminHeader: testAdminPIN})
}

func (s *testServer) register(t *testing.T, phone, name string) {
	t.Helper()
	recorder := s.do(t, http.MethodPost, "/people", map[string]string{"phone": phone, "name": name}, nil)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("register %s: unexpected status %d body %s", phone, recorder.Code, recorder.Body.String())
	}
}

func decodeBody[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var value T
	if err := json.Unmarshal(recorder.Body.Bytes(), &value); err != nil {
		t.Fatalf("failed to decode body %q: %v", recorder.Body.String(), err)
	}
	return value
}

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"parkingsystem/backend/services/parking-service/internal/billing"
	"parkingsystem/backend/services/parking-service/internal/clients"
	httpserver "parkingsystem/backend/services/parking-service/internal/http"
	"parkingsystem/backend/services/parking-service/internal/rates"
	"parkingsystem/backend/services/parking-service/internal/repository"
	"parkingsystem/backend/services/parking-service/internal/service"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type fakeDetector struct {
	mu        sync.Mutex
	detection *clients.Detection
	err       error
	filenames []string
}

func (f *fakeDetector) Detect(_ context.Context, image []byte, filename string) (*clients.Detection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filenames = append(f.filenames, filename)
	if f.err != nil {
		return nil, f.err
	}
	d := *f.detection
	return &d, nil
}

type fakeHealth struct {
	status int
	body   []byte
	err    error
}

func (f fakeHealth) Health(context.Context) (int, []byte, error) {
	return f.status, f.body, f.err
}

type fixture struct {
	clock    *fakeClock
	detector *fakeDetector
	handler  http.Handler
}

func newFixture(t *testing.T, health clients.HealthChecker) *fixture {
	t.Helper()
	table, err := rates.NewTable(nil)
	require.NoError(t, err)

	clock := &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	repo := repository.NewMemorySessionRepository()
	logger := zap.NewNop()
	svc := service.NewSessionsService(repo, billing.NewEngine(table), service.NewKeyedLocker(), logger,
		service.WithClock(clock.Now))
	dashboard := service.NewDashboardService(repo, service.FixedCapacity(10))

	detector := &fakeDetector{detection: &clients.Detection{Plate: "30A-12345", Confidence: 0.93, Method: "ai-service"}}
	sessions := NewSessionsHandler(svc, logger)
	camera := NewCameraHandler(sessions, detector, health, logger)
	layout := NewLayoutHandler(service.NewLayoutService(repository.NewMemoryLayoutRepository(), logger), logger)

	handler := httpserver.NewRouter(httpserver.Routes{
		OpenSession:    sessions.HandleOpen,
		ListSessions:   sessions.HandleList,
		GetSession:     sessions.HandleGet,
		ExitByPlate:    sessions.HandleExitByPlate,
		ExitByID:       sessions.HandleExitByID,
		Statistics:     NewStatisticsHandler(dashboard, logger),
		CurrentParking: NewCurrentParkingHandler(svc, logger),
		CameraDetect:   camera.HandleDetect,
		CameraEntry:    camera.HandleEntry,
		CameraExit:     camera.HandleExit,
		AIHealth:       camera.HandleAIHealth,
		ListBlocks:     layout.HandleListBlocks,
		CreateBlock:    layout.HandleCreateBlock,
		ListLanes:      layout.HandleListLanes,
		CreateLane:     layout.HandleCreateLane,
		Health:         NewHealthHandler(),
	})
	return &fixture{clock: clock, detector: detector, handler: handler}
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestMotorcycleStayIsBilledTwoHours(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/api/sessions", map[string]interface{}{
		"licensePlate": "51F-12345",
		"vehicleType":  "motorcycle",
		"floor":        2,
		"slot":         17,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	opened := decodeBody(t, rec)
	assert.Equal(t, "51F-12345", opened["licensePlate"])
	assert.Equal(t, "MOTORCYCLE", opened["vehicleType"])
	assert.EqualValues(t, 2, opened["floor"])
	assert.Nil(t, opened["exitTime"])

	f.clock.Set(time.Date(2024, 5, 1, 9, 5, 0, 0, time.UTC))
	rec = f.do(t, http.MethodPost, "/sessions", map[string]interface{}{"licensePlate": "51f-12345"})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "duplicate_session", decodeBody(t, rec)["code"])

	f.clock.Set(time.Date(2024, 5, 1, 10, 2, 0, 0, time.UTC))
	rec = f.do(t, http.MethodPost, "/sessions/51F-12345/exit", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	closed := decodeBody(t, rec)
	assert.Equal(t, opened["id"], closed["id"])
	assert.EqualValues(t, 62, closed["durationMinutes"])
	assert.EqualValues(t, 2, closed["billableHours"])
	assert.EqualValues(t, 5000, closed["hourlyRate"])
	assert.EqualValues(t, 10000, closed["fee"])
	assert.NotContains(t, closed, "anomalies")

	rec = f.do(t, http.MethodPost, "/sessions/51F-12345/exit", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "session_not_found", decodeBody(t, rec)["code"])
}

func TestOpenSessionRejectsBadInput(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/sessions", map[string]interface{}{"licensePlate": "   "})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_plate", decodeBody(t, rec)["code"])

	req := httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewBufferString("{"))
	raw := httptest.NewRecorder()
	f.handler.ServeHTTP(raw, req)
	require.Equal(t, http.StatusBadRequest, raw.Code)
	assert.Equal(t, "invalid_json", decodeBody(t, raw)["code"])
}

func TestUnknownVehicleTypeFallsBackToCar(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/sessions", map[string]interface{}{"licensePlate": "29B-00001", "vehicleType": "hovercraft"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "CAR", decodeBody(t, rec)["vehicleType"])
}

func TestExitByIDAndGet(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/sessions", map[string]interface{}{"licensePlate": "30A-11111", "vehicleType": "TRUCK"})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decodeBody(t, rec)["id"].(string)

	rec = f.do(t, http.MethodGet, "/api/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "30A-11111", decodeBody(t, rec)["licensePlate"])

	f.clock.Set(f.clock.Now().Add(30 * time.Minute))
	rec = f.do(t, http.MethodPost, "/sessions/by-id/"+id+"/exit", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.EqualValues(t, 30, body["durationMinutes"])
	assert.EqualValues(t, 15000, body["fee"])

	rec = f.do(t, http.MethodPost, "/sessions/by-id/"+id+"/exit", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/sessions/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListSessionsFilters(t *testing.T) {
	f := newFixture(t, nil)

	for _, plate := range []string{"30A-00001", "30A-00002", "30A-00003"} {
		require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/sessions", map[string]interface{}{"licensePlate": plate}).Code)
		f.clock.Set(f.clock.Now().Add(time.Minute))
	}
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/sessions/30A-00002/exit", nil).Code)

	rec := f.do(t, http.MethodGet, "/sessions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeList(t, rec), 3)

	rec = f.do(t, http.MethodGet, "/sessions?open=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeList(t, rec), 2)

	rec = f.do(t, http.MethodGet, "/sessions?open=false", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	closed := decodeList(t, rec)
	require.Len(t, closed, 1)
	assert.Equal(t, "30A-00002", closed[0]["licensePlate"])

	rec = f.do(t, http.MethodGet, "/sessions?plate=30a-00003", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeList(t, rec), 1)

	rec = f.do(t, http.MethodGet, "/sessions?plate=NOPE", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/sessions?open=maybe", nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/sessions?limit=-1", nil).Code)
}

func TestDashboardAfterThreeEntriesAndOneExit(t *testing.T) {
	f := newFixture(t, nil)

	f.do(t, http.MethodPost, "/sessions", map[string]interface{}{"licensePlate": "A1", "vehicleType": "CAR"})
	f.do(t, http.MethodPost, "/sessions", map[string]interface{}{"licensePlate": "A2", "vehicleType": "BICYCLE"})
	f.do(t, http.MethodPost, "/sessions", map[string]interface{}{"licensePlate": "A3", "vehicleType": "CAR"})
	f.clock.Set(f.clock.Now().Add(time.Hour))
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/sessions/A1/exit", nil).Code)

	rec := f.do(t, http.MethodGet, "/api/dashboard/statistics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decodeBody(t, rec)
	assert.EqualValues(t, 3, stats["totalVehicles"])
	assert.EqualValues(t, 2, stats["currentlyParked"])
	assert.EqualValues(t, 8, stats["availableSpots"])
	assert.EqualValues(t, 20, stats["occupancyRate"])
	assert.EqualValues(t, 10, stats["capacity"])

	types := stats["vehicleTypes"].(map[string]interface{})
	assert.EqualValues(t, 1, types["CAR"])
	assert.EqualValues(t, 1, types["BICYCLE"])
	assert.EqualValues(t, 0, types["MOTORCYCLE"])
	assert.EqualValues(t, 0, types["TRUCK"])

	rec = f.do(t, http.MethodGet, "/dashboard/current-parking", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeList(t, rec), 2)
}

func multipartRequest(t *testing.T, path, field, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestCameraDetect(t *testing.T) {
	f := newFixture(t, nil)

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, multipartRequest(t, "/api/camera/detect", "file", "gate.jpg", []byte("jpeg-bytes")))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "30A-12345", body["licensePlate"])
	assert.Equal(t, 0.93, body["confidence"])
	assert.Equal(t, []string{"gate.jpg"}, f.detector.filenames)

	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, multipartRequest(t, "/camera/detect", "image", "gate.jpg", []byte("jpeg-bytes")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	cases := []struct {
		err    error
		status int
		code   string
	}{
		{clients.ErrUpstreamUnavailable, http.StatusBadGateway, "upstream_unavailable"},
		{clients.ErrPlateNotDetected, http.StatusUnprocessableEntity, "plate_not_detected"},
		{clients.ErrRecognitionDisabled, http.StatusServiceUnavailable, "recognition_disabled"},
	}
	for _, tc := range cases {
		f.detector.err = tc.err
		rec = httptest.NewRecorder()
		f.handler.ServeHTTP(rec, multipartRequest(t, "/camera/detect", "file", "gate.jpg", []byte("jpeg-bytes")))
		assert.Equal(t, tc.status, rec.Code)
		assert.Equal(t, tc.code, decodeBody(t, rec)["code"])
	}
}

func TestCameraEntryAndExit(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/camera/entry", map[string]interface{}{
		"licensePlate": "30A-12345",
		"vehicleType":  "CAR",
		"confidence":   0.93,
		"method":       "ai-service",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	opened := decodeBody(t, rec)
	assert.Equal(t, "ai-service", opened["detectionMethod"])
	assert.Equal(t, 0.93, opened["confidence"])

	rec = f.do(t, http.MethodPost, "/camera/entry", map[string]interface{}{"licensePlate": "30A-12345"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPost, "/camera/entry", map[string]interface{}{"licensePlate": "30A-99999"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "camera", decodeBody(t, rec)["detectionMethod"])

	f.clock.Set(f.clock.Now().Add(61 * time.Minute))
	rec = f.do(t, http.MethodPost, "/camera/exit", map[string]interface{}{"licensePlate": "30A-12345"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	closed := decodeBody(t, rec)
	assert.EqualValues(t, 2, closed["billableHours"])
	assert.EqualValues(t, 20000, closed["fee"])
}

func TestAIHealth(t *testing.T) {
	rec := newFixture(t, nil).do(t, http.MethodGet, "/camera/ai-health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	f := newFixture(t, fakeHealth{status: http.StatusOK, body: []byte(`{"status":"healthy","model":"yolo"}`)})
	rec = f.do(t, http.MethodGet, "/camera/ai-health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","model":"yolo"}`, rec.Body.String())

	f = newFixture(t, fakeHealth{status: http.StatusOK, body: []byte("ok")})
	rec = f.do(t, http.MethodGet, "/camera/ai-health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	f = newFixture(t, fakeHealth{err: clients.ErrUpstreamUnavailable})
	rec = f.do(t, http.MethodGet, "/camera/ai-health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMethodGuardAndHealth(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodDelete, "/sessions", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "GET, POST", rec.Header().Get("Allow"))

	rec = f.do(t, http.MethodGet, "/sessions/30A-1/exit", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = f.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestBlockRegistry(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/api/blocks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeList(t, rec))

	rec = f.do(t, http.MethodPost, "/api/blocks", map[string]interface{}{"name": "Floor 1", "floor": 1, "slots": 250})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody(t, rec)
	assert.NotZero(t, created["id"])
	assert.EqualValues(t, 250, created["slots"])

	rec = f.do(t, http.MethodPost, "/blocks", map[string]interface{}{"name": "Floor 1", "floor": 2, "slots": 10})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "duplicate_block", decodeBody(t, rec)["code"])

	rec = f.do(t, http.MethodPost, "/blocks", map[string]interface{}{"name": "Empty", "floor": 2, "slots": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_block", decodeBody(t, rec)["code"])

	rec = f.do(t, http.MethodGet, "/blocks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	blocks := decodeList(t, rec)
	require.Len(t, blocks, 1)
	assert.Equal(t, "Floor 1", blocks[0]["name"])

	rec = f.do(t, http.MethodDelete, "/blocks", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "GET, POST", rec.Header().Get("Allow"))
}

func TestLaneRegistry(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/api/lanes", map[string]interface{}{"type": "exit", "camera": "cam-out-1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "EXIT", decodeBody(t, rec)["type"])

	rec = f.do(t, http.MethodPost, "/api/lanes", map[string]interface{}{"type": "diagonal", "camera": "cam-2"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_lane", decodeBody(t, rec)["code"])

	rec = f.do(t, http.MethodGet, "/lanes", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	lanes := decodeList(t, rec)
	require.Len(t, lanes, 1)
	assert.Equal(t, "cam-out-1", lanes[0]["camera"])
}

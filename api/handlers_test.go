package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warp/academy-engine/academy"
	"github.com/warp/academy-engine/academy/store"
	"github.com/warp/academy-engine/api"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	mem := store.NewMemory()
	h := api.NewHandler(mem, academy.DefaultThresholds(), zap.NewNop())
	return api.NewRouter(h, zap.NewNop())
}

func doRequest(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

// seedAcademy creates a teacher, a student, and an 8-lesson Tue/Thu package.
func seedAcademy(t *testing.T, router http.Handler) api.PurchaseResponse {
	t.Helper()

	rec := doRequest(t, router, http.MethodPost, "/api/teachers", map[string]any{
		"id": "t-anna", "name": "Anna", "rate_per_lesson": "20",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doRequest(t, router, http.MethodPost, "/api/students", map[string]any{
		"id": "s-boris", "name": "Boris", "teacher_id": "t-anna",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doRequest(t, router, http.MethodPost, "/api/packages", map[string]any{
		"student_id":       "s-boris",
		"teacher_id":       "t-anna",
		"amount_paid":      "240.00",
		"lessons":          8,
		"duration_minutes": 60,
		"start_date":       "2025-03-03",
		"weekly_slots": []map[string]string{
			{"day": "tuesday", "time": "18:00"},
			{"day": "thursday", "time": "19:00"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[api.PurchaseResponse](t, rec)
}

// =============================================================================
// PURCHASE FLOW TESTS
// =============================================================================

func TestAPI_PurchaseGeneratesSchedule(t *testing.T) {
	router := newTestRouter(t)
	purchase := seedAcademy(t, router)

	assert.Equal(t, "active", purchase.Package.Status)
	require.Len(t, purchase.Lessons, 8)
	assert.Equal(t, "2025-03-04", purchase.Lessons[0].Date)
	assert.Equal(t, "18:00", purchase.Lessons[0].Time)
	assert.Equal(t, "scheduled", purchase.Lessons[0].Status)

	assert.Equal(t, 8, purchase.Wallet.Balance)
	assert.Equal(t, 8, purchase.Wallet.Reserved)
	assert.Equal(t, 0, purchase.Wallet.Available)
	assert.Equal(t, "active", purchase.Wallet.Status)

	// The wallet endpoint agrees
	rec := doRequest(t, router, http.MethodGet, "/api/students/s-boris/wallet", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	wallet := decode[api.WalletDTO](t, rec)
	assert.Equal(t, purchase.Wallet, wallet)
}

func TestAPI_PurchaseValidation(t *testing.T) {
	router := newTestRouter(t)
	seedAcademy(t, router)

	// Missing lesson count
	rec := doRequest(t, router, http.MethodPost, "/api/packages", map[string]any{
		"student_id": "s-boris", "teacher_id": "t-anna",
		"duration_minutes": 60, "start_date": "2025-03-03",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown student
	rec = doRequest(t, router, http.MethodPost, "/api/packages", map[string]any{
		"student_id": "s-nobody", "teacher_id": "t-anna",
		"lessons": 4, "duration_minutes": 60, "start_date": "2025-05-01",
		"weekly_slots": []map[string]string{{"day": "monday", "time": "10:00"}},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Garbage weekday
	rec = doRequest(t, router, http.MethodPost, "/api/packages", map[string]any{
		"student_id": "s-boris", "teacher_id": "t-anna",
		"lessons": 4, "duration_minutes": 60, "start_date": "2025-05-01",
		"weekly_slots": []map[string]string{{"day": "someday", "time": "10:00"}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// LESSON LIFECYCLE TESTS
// =============================================================================

func TestAPI_MarkLesson(t *testing.T) {
	router := newTestRouter(t)
	purchase := seedAcademy(t, router)
	id := purchase.Lessons[0].ID

	rec := doRequest(t, router, http.MethodPost, "/api/lessons/"+id+"/mark", map[string]any{
		"status": "completed", "notes": "good progress",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[api.LessonResponse](t, rec)
	assert.Equal(t, "completed", resp.Lesson.Status)
	assert.Equal(t, "good progress", resp.Lesson.Notes)
	require.NotNil(t, resp.Wallet)
	assert.Equal(t, 7, resp.Wallet.Balance)
	assert.Equal(t, 0, resp.Wallet.Available)

	// Re-marking a consumed lesson is a state conflict
	rec = doRequest(t, router, http.MethodPost, "/api/lessons/"+id+"/mark", map[string]any{
		"status": "absent",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Unknown lesson
	rec = doRequest(t, router, http.MethodPost, "/api/lessons/li-nobody/mark", map[string]any{
		"status": "completed",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_RescheduleConflict(t *testing.T) {
	router := newTestRouter(t)
	purchase := seedAcademy(t, router)

	// Moving lesson 0 onto lesson 1's slot collides
	rec := doRequest(t, router, http.MethodPost, "/api/lessons/"+purchase.Lessons[0].ID+"/reschedule", map[string]any{
		"date": purchase.Lessons[1].Date, "time": purchase.Lessons[1].Time,
	})
	require.Equal(t, http.StatusConflict, rec.Code)

	errResp := decode[api.ErrorResponse](t, rec)
	require.NotNil(t, errResp.Conflict, "409 must name the occupying lesson")
	assert.Equal(t, purchase.Lessons[1].ID, errResp.Conflict.LessonID)
	assert.Equal(t, "Boris", errResp.Conflict.StudentName)

	// A free slot works
	rec = doRequest(t, router, http.MethodPost, "/api/lessons/"+purchase.Lessons[0].ID+"/reschedule", map[string]any{
		"date": "2025-03-07", "time": "12:00",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[api.LessonResponse](t, rec)
	assert.Equal(t, "rescheduled", resp.Lesson.Status)
	assert.Equal(t, "2025-03-07", resp.Lesson.Date)
}

func TestAPI_DeleteLesson(t *testing.T) {
	router := newTestRouter(t)
	purchase := seedAcademy(t, router)
	id := purchase.Lessons[0].ID

	rec := doRequest(t, router, http.MethodDelete, "/api/lessons/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/lessons/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Consumed lessons cannot be deleted
	id2 := purchase.Lessons[1].ID
	rec = doRequest(t, router, http.MethodPost, "/api/lessons/"+id2+"/mark", map[string]any{"status": "completed"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(t, router, http.MethodDelete, "/api/lessons/"+id2, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAPI_AdHocLessonGating(t *testing.T) {
	router := newTestRouter(t)
	purchase := seedAcademy(t, router)
	pkgID := purchase.Package.ID

	// No available credit: rejected
	rec := doRequest(t, router, http.MethodPost, "/api/packages/"+pkgID+"/lessons", map[string]any{
		"date": "2025-05-01", "time": "10:00",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Bonus lessons bypass the wallet
	rec = doRequest(t, router, http.MethodPost, "/api/packages/"+pkgID+"/lessons", map[string]any{
		"date": "2025-05-01", "time": "10:00", "bonus": true,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	lesson := decode[api.LessonDTO](t, rec)
	assert.True(t, lesson.Bonus)
}

// =============================================================================
// TEACHER VIEW TESTS
// =============================================================================

func TestAPI_ConflictProbe(t *testing.T) {
	router := newTestRouter(t)
	purchase := seedAcademy(t, router)

	rec := doRequest(t, router, http.MethodGet,
		"/api/teachers/t-anna/conflicts?date="+purchase.Lessons[0].Date+"&time=18:00", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	probe := decode[map[string]any](t, rec)
	assert.Equal(t, false, probe["available"])

	rec = doRequest(t, router, http.MethodGet,
		"/api/teachers/t-anna/conflicts?date=2025-07-01&time=18:00", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	probe = decode[map[string]any](t, rec)
	assert.Equal(t, true, probe["available"])
}

func TestAPI_TeacherHours(t *testing.T) {
	router := newTestRouter(t)
	purchase := seedAcademy(t, router)

	for _, li := range purchase.Lessons[:2] {
		rec := doRequest(t, router, http.MethodPost, "/api/lessons/"+li.ID+"/mark", map[string]any{"status": "completed"})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doRequest(t, router, http.MethodGet,
		"/api/teachers/t-anna/hours?period=week&date=2025-03-03", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	hours := decode[api.TeacherHoursDTO](t, rec)
	assert.Equal(t, 2, hours.Lessons)
	assert.Equal(t, "2.00", hours.Hours)
	assert.Equal(t, "40.00", hours.Pay)
	assert.Equal(t, "2025-03-03", hours.From)
	assert.Equal(t, "2025-03-09", hours.To)

	rec = doRequest(t, router, http.MethodGet,
		"/api/teachers/t-anna/hours?period=fortnight&date=2025-03-03", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// WALLET ADJUSTMENT TESTS
// =============================================================================

func TestAPI_WalletAdjustment(t *testing.T) {
	router := newTestRouter(t)
	seedAcademy(t, router)

	rec := doRequest(t, router, http.MethodPost, "/api/students/s-boris/adjustments", map[string]any{
		"delta": 2, "reason": "makeup for outage", "created_by": "admin",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	wallet := decode[api.WalletDTO](t, rec)
	assert.Equal(t, 10, wallet.Balance)
	assert.Equal(t, 2, wallet.Available)

	// Missing reason
	rec = doRequest(t, router, http.MethodPost, "/api/students/s-boris/adjustments", map[string]any{
		"delta": 1,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/students/s-boris/adjustments", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[[]api.AdjustmentDTO](t, rec)
	require.Len(t, history, 1)
	assert.Equal(t, 2, history[0].Delta)
}

// =============================================================================
// STUDENT VIEW TESTS
// =============================================================================

func TestAPI_StudentViews(t *testing.T) {
	router := newTestRouter(t)
	purchase := seedAcademy(t, router)

	rec := doRequest(t, router, http.MethodGet, "/api/students/s-boris", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	student := decode[api.StudentDTO](t, rec)
	assert.Equal(t, "Boris", student.Name)
	require.NotNil(t, student.Wallet)
	assert.Equal(t, 8, student.Wallet.Balance)

	rec = doRequest(t, router, http.MethodGet, "/api/students/s-boris/lessons", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	lessons := decode[[]api.LessonDTO](t, rec)
	assert.Len(t, lessons, 8)

	rec = doRequest(t, router, http.MethodGet, "/api/students/s-boris/counts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	counts := decode[api.LessonCountsDTO](t, rec)
	assert.Equal(t, 8, counts.Scheduled)
	assert.Equal(t, 8, counts.Total)

	rec = doRequest(t, router, http.MethodGet, "/api/packages/"+purchase.Package.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	pkg := decode[api.PackageDTO](t, rec)
	assert.Len(t, pkg.Slots, 2)

	rec = doRequest(t, router, http.MethodGet, "/api/students/s-nobody", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// A student needs an existing teacher
	rec = doRequest(t, router, http.MethodPost, "/api/students", map[string]any{
		"name": "Dana", "teacher_id": "t-nobody",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

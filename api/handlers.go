/*
handlers.go - HTTP API handlers for the academy engine

PURPOSE:
  Exposes the academy engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Students:
    GET    /api/students                 List students with derived wallets
    POST   /api/students                 Create student
    GET    /api/students/{id}            Get student with wallet
    GET    /api/students/{id}/wallet     Wallet summary only
    GET    /api/students/{id}/lessons    Full lesson history
    GET    /api/students/{id}/packages   Purchase history
    GET    /api/students/{id}/counts     Lesson counts by status
    POST   /api/students/{id}/adjustments  Manual wallet correction
    GET    /api/students/{id}/adjustments  Correction history

  Teachers:
    GET    /api/teachers                 List teachers
    POST   /api/teachers                 Create teacher
    GET    /api/teachers/{id}            Get teacher
    GET    /api/teachers/{id}/schedule   Day schedule (?date=YYYY-MM-DD)
    GET    /api/teachers/{id}/conflicts  Slot availability (?date=&time=)
    GET    /api/teachers/{id}/hours      Hours and pay (?from=&to= or ?period=&date=)

  Packages:
    POST   /api/packages                 Purchase or renew (generates schedule)
    GET    /api/packages/{id}            Get package with pattern
    GET    /api/packages/{id}/lessons    Generated instances
    POST   /api/packages/{id}/lessons    Add an ad-hoc or bonus lesson
    POST   /api/packages/{id}/close      Manual completion

  Lessons:
    GET    /api/lessons/{id}             Get instance
    POST   /api/lessons/{id}/mark        Complete / absent / cancel
    POST   /api/lessons/{id}/reschedule  Move to a new slot
    DELETE /api/lessons/{id}             Delete (live lessons only)

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, insufficient credit, invalid input
  - 404: Entity not found
  - 409: Slot conflict, disallowed transition, concurrent modification
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/academy-engine/academy"
)

func newID() string { return uuid.NewString() }

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    academy.TxStore
	Lessons  *academy.Lessons
	Packages *academy.Packages
	Reports  *academy.Reports

	thresholds academy.Thresholds
	validate   *validator.Validate
	log        *zap.Logger
}

// NewHandler creates a new handler wired to the given store.
func NewHandler(store academy.TxStore, thresholds academy.Thresholds, log *zap.Logger) *Handler {
	return &Handler{
		Store:      store,
		Lessons:    academy.NewLessons(store, thresholds),
		Packages:   academy.NewPackages(store, thresholds),
		Reports:    academy.NewReports(store),
		thresholds: thresholds,
		validate:   validator.New(),
		log:        log,
	}
}

// decode parses and validates a JSON request body.
func (h *Handler) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &academy.ValidationError{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &academy.ValidationError{Field: verrs[0].Field(), Message: "failed " + verrs[0].Tag() + " validation"}
		}
		return &academy.ValidationError{Field: "body", Message: err.Error()}
	}
	return nil
}

// =============================================================================
// STUDENT HANDLERS
// =============================================================================

// ListStudents returns all students with their derived wallets.
func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.Store.ListStudents(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list students", err)
		return
	}

	dtos := make([]StudentDTO, len(students))
	for i, s := range students {
		dtos[i] = toStudentDTO(s)
		if inputs, err := h.Store.WalletInputs(r.Context(), s.ID); err == nil {
			wallet := toWalletDTO(academy.Summarize(inputs, h.thresholds))
			dtos[i].Wallet = &wallet
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateStudent creates or updates a student.
func (h *Handler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	var req CreateStudentRequest
	if err := h.decode(r, &req); err != nil {
		h.writeDomainError(w, "Invalid student", err)
		return
	}

	teacher, err := h.Store.GetTeacher(r.Context(), academy.TeacherID(req.TeacherID))
	if err != nil {
		h.writeDomainError(w, "Failed to look up teacher", err)
		return
	}
	if teacher == nil {
		h.writeDomainError(w, "Unknown teacher", &academy.NotFoundError{Kind: "teacher", ID: req.TeacherID})
		return
	}

	id := req.ID
	if id == "" {
		id = newID()
	}
	student := academy.Student{
		ID:        academy.StudentID(id),
		Name:      req.Name,
		Email:     req.Email,
		TeacherID: academy.TeacherID(req.TeacherID),
		Notes:     req.Notes,
	}
	if err := h.Store.SaveStudent(r.Context(), student); err != nil {
		h.writeDomainError(w, "Failed to save student", err)
		return
	}

	saved, err := h.Store.GetStudent(r.Context(), student.ID)
	if err != nil || saved == nil {
		h.writeDomainError(w, "Failed to reload student", err)
		return
	}
	writeJSON(w, http.StatusCreated, toStudentDTO(*saved))
}

// GetStudent returns a single student with the derived wallet.
func (h *Handler) GetStudent(w http.ResponseWriter, r *http.Request) {
	id := academy.StudentID(chi.URLParam(r, "id"))

	student, err := h.Store.GetStudent(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to get student", err)
		return
	}
	if student == nil {
		h.writeDomainError(w, "Student not found", &academy.NotFoundError{Kind: "student", ID: string(id)})
		return
	}

	dto := toStudentDTO(*student)
	if inputs, err := h.Store.WalletInputs(r.Context(), id); err == nil {
		wallet := toWalletDTO(academy.Summarize(inputs, h.thresholds))
		dto.Wallet = &wallet
	}
	writeJSON(w, http.StatusOK, dto)
}

// GetWallet returns the derived wallet summary.
func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	id := academy.StudentID(chi.URLParam(r, "id"))

	wallet, err := h.Lessons.Wallet(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to compute wallet", err)
		return
	}
	writeJSON(w, http.StatusOK, toWalletDTO(*wallet))
}

// ListStudentLessons returns the student's full lesson history.
func (h *Handler) ListStudentLessons(w http.ResponseWriter, r *http.Request) {
	id := academy.StudentID(chi.URLParam(r, "id"))

	instances, err := h.Store.ListInstancesByStudent(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to list lessons", err)
		return
	}
	writeJSON(w, http.StatusOK, toLessonDTOs(instances))
}

// ListStudentPackages returns the student's purchase history.
func (h *Handler) ListStudentPackages(w http.ResponseWriter, r *http.Request) {
	id := academy.StudentID(chi.URLParam(r, "id"))

	pkgs, err := h.Store.ListPackagesByStudent(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to list packages", err)
		return
	}

	dtos := make([]PackageDTO, len(pkgs))
	for i, p := range pkgs {
		slots, _ := h.Store.GetSlots(r.Context(), p.ID)
		dtos[i] = toPackageDTO(p, slots)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetStudentCounts returns the student's lesson counts by status.
func (h *Handler) GetStudentCounts(w http.ResponseWriter, r *http.Request) {
	id := academy.StudentID(chi.URLParam(r, "id"))

	counts, err := h.Reports.StudentCounts(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to count lessons", err)
		return
	}
	writeJSON(w, http.StatusOK, toLessonCountsDTO(*counts))
}

// AdjustWallet appends a manual wallet correction.
func (h *Handler) AdjustWallet(w http.ResponseWriter, r *http.Request) {
	id := academy.StudentID(chi.URLParam(r, "id"))

	var req AdjustWalletRequest
	if err := h.decode(r, &req); err != nil {
		h.writeDomainError(w, "Invalid adjustment", err)
		return
	}

	wallet, err := h.Lessons.Adjust(r.Context(), id, req.Delta, req.Reason, req.CreatedBy)
	if err != nil {
		h.writeDomainError(w, "Failed to adjust wallet", err)
		return
	}

	h.log.Info("wallet adjusted",
		zap.String("student_id", string(id)),
		zap.Int("delta", req.Delta),
		zap.String("reason", req.Reason))
	writeJSON(w, http.StatusOK, toWalletDTO(*wallet))
}

// ListAdjustments returns the student's correction history.
func (h *Handler) ListAdjustments(w http.ResponseWriter, r *http.Request) {
	id := academy.StudentID(chi.URLParam(r, "id"))

	adjustments, err := h.Store.ListAdjustments(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to list adjustments", err)
		return
	}

	dtos := make([]AdjustmentDTO, len(adjustments))
	for i, a := range adjustments {
		dtos[i] = toAdjustmentDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// TEACHER HANDLERS
// =============================================================================

// ListTeachers returns all teachers.
func (h *Handler) ListTeachers(w http.ResponseWriter, r *http.Request) {
	teachers, err := h.Store.ListTeachers(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list teachers", err)
		return
	}

	dtos := make([]TeacherDTO, len(teachers))
	for i, t := range teachers {
		dtos[i] = toTeacherDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateTeacher creates or updates a teacher.
func (h *Handler) CreateTeacher(w http.ResponseWriter, r *http.Request) {
	var req CreateTeacherRequest
	if err := h.decode(r, &req); err != nil {
		h.writeDomainError(w, "Invalid teacher", err)
		return
	}

	rate := decimal.Zero
	if req.RatePerLesson != "" {
		var err error
		if rate, err = decimal.NewFromString(req.RatePerLesson); err != nil {
			h.writeDomainError(w, "Invalid rate",
				&academy.ValidationError{Field: "rate_per_lesson", Message: "must be a decimal number"})
			return
		}
	}

	id := req.ID
	if id == "" {
		id = newID()
	}
	teacher := academy.Teacher{
		ID:            academy.TeacherID(id),
		Name:          req.Name,
		RatePerLesson: rate,
	}
	if err := h.Store.SaveTeacher(r.Context(), teacher); err != nil {
		h.writeDomainError(w, "Failed to save teacher", err)
		return
	}

	saved, err := h.Store.GetTeacher(r.Context(), teacher.ID)
	if err != nil || saved == nil {
		h.writeDomainError(w, "Failed to reload teacher", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTeacherDTO(*saved))
}

// GetTeacher returns a single teacher.
func (h *Handler) GetTeacher(w http.ResponseWriter, r *http.Request) {
	id := academy.TeacherID(chi.URLParam(r, "id"))

	teacher, err := h.Store.GetTeacher(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to get teacher", err)
		return
	}
	if teacher == nil {
		h.writeDomainError(w, "Teacher not found", &academy.NotFoundError{Kind: "teacher", ID: string(id)})
		return
	}
	writeJSON(w, http.StatusOK, toTeacherDTO(*teacher))
}

// GetTeacherSchedule returns the teacher's lessons on one day (?date=).
func (h *Handler) GetTeacherSchedule(w http.ResponseWriter, r *http.Request) {
	id := academy.TeacherID(chi.URLParam(r, "id"))

	date, err := parseDate(r.URL.Query().Get("date"))
	if err != nil {
		h.writeDomainError(w, "Invalid date", &academy.ValidationError{Field: "date", Message: err.Error()})
		return
	}

	instances, err := h.Store.ListInstancesByTeacherOn(r.Context(), id, date)
	if err != nil {
		h.writeDomainError(w, "Failed to list schedule", err)
		return
	}
	writeJSON(w, http.StatusOK, toLessonDTOs(instances))
}

// CheckConflict reports whether a slot is free (?date=&time=).
func (h *Handler) CheckConflict(w http.ResponseWriter, r *http.Request) {
	id := academy.TeacherID(chi.URLParam(r, "id"))

	date, err := parseDate(r.URL.Query().Get("date"))
	if err != nil {
		h.writeDomainError(w, "Invalid date", &academy.ValidationError{Field: "date", Message: err.Error()})
		return
	}
	tod, err := academy.ParseTimeOfDay(r.URL.Query().Get("time"))
	if err != nil {
		h.writeDomainError(w, "Invalid time", &academy.ValidationError{Field: "time", Message: err.Error()})
		return
	}

	conflict, err := academy.CheckSlot(r.Context(), h.Store, id, date, tod, "")
	if err != nil {
		h.writeDomainError(w, "Failed to check slot", err)
		return
	}

	resp := map[string]any{"available": conflict == nil}
	if conflict != nil {
		resp["conflict"] = toConflictDTO(conflict)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetTeacherHours returns hours and pay for a period. Accepts either an
// explicit ?from=&to= range or ?period=day|week|month&date=.
func (h *Handler) GetTeacherHours(w http.ResponseWriter, r *http.Request) {
	id := academy.TeacherID(chi.URLParam(r, "id"))
	q := r.URL.Query()

	var from, to time.Time
	if period := q.Get("period"); period != "" {
		anchor, err := parseDate(q.Get("date"))
		if err != nil {
			h.writeDomainError(w, "Invalid date", &academy.ValidationError{Field: "date", Message: err.Error()})
			return
		}
		switch period {
		case "day":
			from, to = academy.DayRange(anchor)
		case "week":
			from, to = academy.WeekRange(anchor)
		case "month":
			from, to = academy.MonthRange(anchor)
		default:
			h.writeDomainError(w, "Invalid period",
				&academy.ValidationError{Field: "period", Message: "use day, week or month"})
			return
		}
	} else {
		var err error
		if from, err = parseDate(q.Get("from")); err != nil {
			h.writeDomainError(w, "Invalid range", &academy.ValidationError{Field: "from", Message: err.Error()})
			return
		}
		if to, err = parseDate(q.Get("to")); err != nil {
			h.writeDomainError(w, "Invalid range", &academy.ValidationError{Field: "to", Message: err.Error()})
			return
		}
	}

	report, err := h.Reports.TeacherHours(r.Context(), id, from, to)
	if err != nil {
		h.writeDomainError(w, "Failed to compute hours", err)
		return
	}
	writeJSON(w, http.StatusOK, toTeacherHoursDTO(*report))
}

// =============================================================================
// PACKAGE HANDLERS
// =============================================================================

// PurchasePackage records a purchase and generates its schedule.
func (h *Handler) PurchasePackage(w http.ResponseWriter, r *http.Request) {
	var req PurchasePackageRequest
	if err := h.decode(r, &req); err != nil {
		h.writeDomainError(w, "Invalid purchase", err)
		return
	}

	startDate, err := parseDate(req.StartDate)
	if err != nil {
		h.writeDomainError(w, "Invalid start date", &academy.ValidationError{Field: "start_date", Message: err.Error()})
		return
	}
	slots, err := parseSlots(req.Slots)
	if err != nil {
		h.writeDomainError(w, "Invalid weekly pattern", &academy.ValidationError{Field: "weekly_slots", Message: err.Error()})
		return
	}
	amount := decimal.Zero
	if req.AmountPaid != "" {
		if amount, err = decimal.NewFromString(req.AmountPaid); err != nil {
			h.writeDomainError(w, "Invalid amount",
				&academy.ValidationError{Field: "amount_paid", Message: "must be a decimal number"})
			return
		}
	}

	result, err := h.Packages.CreateOrRenew(r.Context(), academy.CreateOrRenewInput{
		StudentID:        academy.StudentID(req.StudentID),
		TeacherID:        academy.TeacherID(req.TeacherID),
		AmountPaid:       amount,
		LessonsPurchased: req.Lessons,
		DurationMinutes:  req.DurationMinutes,
		StartDate:        startDate,
		Slots:            slots,
	})
	if err != nil {
		h.writeDomainError(w, "Failed to record purchase", err)
		return
	}

	h.log.Info("package purchased",
		zap.String("package_id", string(result.Package.ID)),
		zap.String("student_id", req.StudentID),
		zap.Int("lessons", req.Lessons))

	savedSlots, _ := h.Store.GetSlots(r.Context(), result.Package.ID)
	writeJSON(w, http.StatusCreated, PurchaseResponse{
		Package: toPackageDTO(result.Package, savedSlots),
		Lessons: toLessonDTOs(result.Instances),
		Wallet:  toWalletDTO(result.Wallet),
	})
}

// GetPackage returns a package with its weekly pattern, after re-deriving
// its status from its instances.
func (h *Handler) GetPackage(w http.ResponseWriter, r *http.Request) {
	id := academy.PackageID(chi.URLParam(r, "id"))

	pkg, err := h.Packages.RefreshStatus(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to get package", err)
		return
	}

	slots, _ := h.Store.GetSlots(r.Context(), id)
	writeJSON(w, http.StatusOK, toPackageDTO(*pkg, slots))
}

// ListPackageLessons returns the package's generated instances.
func (h *Handler) ListPackageLessons(w http.ResponseWriter, r *http.Request) {
	id := academy.PackageID(chi.URLParam(r, "id"))

	instances, err := h.Store.ListInstancesByPackage(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to list lessons", err)
		return
	}
	writeJSON(w, http.StatusOK, toLessonDTOs(instances))
}

// CreateLesson adds a single ad-hoc or bonus lesson to a package.
func (h *Handler) CreateLesson(w http.ResponseWriter, r *http.Request) {
	id := academy.PackageID(chi.URLParam(r, "id"))

	var req CreateLessonRequest
	if err := h.decode(r, &req); err != nil {
		h.writeDomainError(w, "Invalid lesson", err)
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		h.writeDomainError(w, "Invalid date", &academy.ValidationError{Field: "date", Message: err.Error()})
		return
	}
	tod, err := academy.ParseTimeOfDay(req.Time)
	if err != nil {
		h.writeDomainError(w, "Invalid time", &academy.ValidationError{Field: "time", Message: err.Error()})
		return
	}

	lesson, err := h.Lessons.Create(r.Context(), academy.CreateLessonInput{
		PackageID:        id,
		Date:             date,
		Time:             tod,
		DurationMinutes:  req.DurationMinutes,
		Bonus:            req.Bonus,
		OverrideConflict: req.OverrideConflict,
		Notes:            req.Notes,
	})
	if err != nil {
		h.writeDomainError(w, "Failed to create lesson", err)
		return
	}
	writeJSON(w, http.StatusCreated, toLessonDTO(*lesson))
}

// ClosePackage marks a package completed regardless of remaining lessons.
func (h *Handler) ClosePackage(w http.ResponseWriter, r *http.Request) {
	id := academy.PackageID(chi.URLParam(r, "id"))

	pkg, err := h.Packages.Close(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to close package", err)
		return
	}

	slots, _ := h.Store.GetSlots(r.Context(), id)
	writeJSON(w, http.StatusOK, toPackageDTO(*pkg, slots))
}

// =============================================================================
// LESSON HANDLERS
// =============================================================================

// GetLesson returns a single lesson instance.
func (h *Handler) GetLesson(w http.ResponseWriter, r *http.Request) {
	id := academy.InstanceID(chi.URLParam(r, "id"))

	lesson, err := h.Store.GetInstance(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to get lesson", err)
		return
	}
	if lesson == nil {
		h.writeDomainError(w, "Lesson not found", &academy.NotFoundError{Kind: "lesson", ID: string(id)})
		return
	}
	writeJSON(w, http.StatusOK, toLessonDTO(*lesson))
}

// MarkLesson transitions a lesson to completed, absent or cancelled and
// returns the updated lesson plus the wallet after the transition.
func (h *Handler) MarkLesson(w http.ResponseWriter, r *http.Request) {
	id := academy.InstanceID(chi.URLParam(r, "id"))

	var req MarkLessonRequest
	if err := h.decode(r, &req); err != nil {
		h.writeDomainError(w, "Invalid mark", err)
		return
	}

	lesson, wallet, err := h.Lessons.Mark(r.Context(), id, academy.LessonStatus(req.Status), req.Notes)
	if err != nil {
		h.writeDomainError(w, "Failed to mark lesson", err)
		return
	}

	h.log.Info("lesson marked",
		zap.String("lesson_id", string(id)),
		zap.String("status", req.Status))

	walletDTO := toWalletDTO(*wallet)
	writeJSON(w, http.StatusOK, LessonResponse{Lesson: toLessonDTO(*lesson), Wallet: &walletDTO})
}

// RescheduleLesson moves a live lesson to a new slot. No wallet effect.
func (h *Handler) RescheduleLesson(w http.ResponseWriter, r *http.Request) {
	id := academy.InstanceID(chi.URLParam(r, "id"))

	var req RescheduleLessonRequest
	if err := h.decode(r, &req); err != nil {
		h.writeDomainError(w, "Invalid reschedule", err)
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		h.writeDomainError(w, "Invalid date", &academy.ValidationError{Field: "date", Message: err.Error()})
		return
	}
	tod, err := academy.ParseTimeOfDay(req.Time)
	if err != nil {
		h.writeDomainError(w, "Invalid time", &academy.ValidationError{Field: "time", Message: err.Error()})
		return
	}

	lesson, err := h.Lessons.Reschedule(r.Context(), id, date, tod)
	if err != nil {
		h.writeDomainError(w, "Failed to reschedule lesson", err)
		return
	}
	writeJSON(w, http.StatusOK, LessonResponse{Lesson: toLessonDTO(*lesson)})
}

// DeleteLesson removes a live lesson and returns the wallet after the
// released hold.
func (h *Handler) DeleteLesson(w http.ResponseWriter, r *http.Request) {
	id := academy.InstanceID(chi.URLParam(r, "id"))

	wallet, err := h.Lessons.Delete(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to delete lesson", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true, "wallet": toWalletDTO(*wallet)})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

// ErrorResponse is the JSON shape of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`

	// Conflict carries the occupying lesson for 409 slot collisions.
	Conflict *ConflictDTO `json:"conflict,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
		var ce *academy.ConflictError
		if errors.As(err, &ce) {
			dto := toConflictDTO(ce)
			resp.Conflict = &dto
		}
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain error categories to HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case academy.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	case academy.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case academy.IsConflict(err), errors.Is(err, academy.ErrState):
		writeError(w, http.StatusConflict, message, err)
	default:
		h.log.Error(message, zap.Error(err))
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

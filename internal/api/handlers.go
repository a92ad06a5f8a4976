package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	redisclient "github.com/clinicdesk/clinic-scheduling/internal/redis"
	"github.com/clinicdesk/clinic-scheduling/internal/schedule"
)

func daySlotsHandler(resolver *schedule.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, ok := parseIDParam(w, r, "id", "provider_id")
		if !ok {
			return
		}

		date, err := parseDate(r.URL.Query().Get("date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		slots, err := resolver.DaySlots(r.Context(), providerID, date)
		if err != nil {
			writeInternalError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, DaySlotsResponse{
			Date:  date.Format(dateLayout),
			Slots: slots,
		})
	}
}

func weekSlotsHandler(resolver *schedule.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, ok := parseIDParam(w, r, "id", "provider_id")
		if !ok {
			return
		}

		start := time.Now()
		if s := r.URL.Query().Get("start"); s != "" {
			var err error
			start, err = parseDate(s)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_start", "start must be YYYY-MM-DD")
				return
			}
		}

		sheets, err := resolver.WeekSlots(r.Context(), providerID, start)
		if err != nil {
			writeInternalError(w, r, err)
			return
		}

		resp := WeekSlotsResponse{Days: make([]DaySlotsResponse, 0, len(sheets))}
		for _, s := range sheets {
			resp.Days = append(resp.Days, DaySlotsResponse{
				Date:  s.Date.Format(dateLayout),
				Slots: s.Slots,
			})
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func gridOptionsHandler(resolver *schedule.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		labels, err := resolver.GridOptions()
		if err != nil {
			writeInternalError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string][]string{"slots": labels})
	}
}

func declareAvailabilityHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, ok := parseIDParam(w, r, "id", "provider_id")
		if !ok {
			return
		}

		var req DeclareAvailabilityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		date, err := parseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		win, err := svc.DeclareAvailability(r.Context(), providerID, date, req.StartTime, req.EndTime)
		if err != nil {
			switch {
			case errors.Is(err, schedule.ErrProviderNotFound):
				writeError(w, http.StatusNotFound, "provider_not_found", err.Error())
			case errors.Is(err, schedule.ErrInvalidWindow):
				writeError(w, http.StatusBadRequest, "invalid_window", err.Error())
			default:
				writeInternalError(w, r, err)
			}
			return
		}

		writeJSON(w, http.StatusCreated, AvailabilityWindowResponse{
			ID:        win.ID,
			Date:      win.Date.Format(dateLayout),
			StartTime: win.StartTime,
			EndTime:   win.EndTime,
		})
	}
}

func listAvailabilityHandler(svc *schedule.Service, horizonDays int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, ok := parseIDParam(w, r, "id", "provider_id")
		if !ok {
			return
		}

		from, to, ok := parseDateRange(w, r, horizonDays)
		if !ok {
			return
		}

		windows, err := svc.ListAvailability(r.Context(), providerID, from, to)
		if err != nil {
			writeInternalError(w, r, err)
			return
		}

		resp := make([]AvailabilityWindowResponse, 0, len(windows))
		for _, win := range windows {
			resp = append(resp, AvailabilityWindowResponse{
				ID:        win.ID,
				Date:      win.Date.Format(dateLayout),
				StartTime: win.StartTime,
				EndTime:   win.EndTime,
			})
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func bookAppointmentHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}

		providerID, err := uuid.Parse(req.ProviderID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_provider_id", "provider_id must be a valid UUID")
			return
		}

		date, err := parseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		appt, err := svc.Book(r.Context(), patientID, providerID, date, req.Time)
		if err != nil {
			handleBookError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func getAppointmentHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id", "appointment_id")
		if !ok {
			return
		}

		detail, err := svc.GetAppointment(r.Context(), id)
		if err != nil {
			if errors.Is(err, schedule.ErrAppointmentNotFound) {
				writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
				return
			}
			writeInternalError(w, r, err)
			return
		}

		resp := AppointmentDetailResponse{
			AppointmentResponse: toAppointmentResponse(&detail.Appointment),
		}
		if detail.Patient != nil {
			resp.PatientName = detail.Patient.Name
		}
		if detail.Provider != nil {
			resp.ProviderName = detail.Provider.Name
		}
		if detail.Treatment != nil {
			resp.Treatment = &TreatmentResponse{
				Diagnosis:    detail.Treatment.Diagnosis,
				Prescription: detail.Treatment.Prescription,
				Notes:        detail.Treatment.Notes,
			}
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func completeAppointmentHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id", "appointment_id")
		if !ok {
			return
		}

		var req CompleteAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		providerID, err := uuid.Parse(req.ProviderID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_provider_id", "provider_id must be a valid UUID")
			return
		}

		appt, err := svc.Complete(r.Context(), id, providerID, req.Diagnosis, req.Prescription, req.Notes)
		if err != nil {
			handleTransitionError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func cancelAppointmentHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id", "appointment_id")
		if !ok {
			return
		}

		var req CancelAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		actorID, err := uuid.Parse(req.ActorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_actor_id", "actor_id must be a valid UUID")
			return
		}

		role := schedule.Role(req.ActorRole)
		if role != schedule.RolePatient && role != schedule.RoleProvider {
			writeError(w, http.StatusBadRequest, "invalid_actor_role", "actor_role must be patient or provider")
			return
		}

		appt, err := svc.Cancel(r.Context(), id, schedule.Actor{ID: actorID, Role: role})
		if err != nil {
			handleTransitionError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func rescheduleAppointmentHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id", "appointment_id")
		if !ok {
			return
		}

		var req RescheduleAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}

		date, err := parseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		appt, err := svc.Reschedule(r.Context(), id, patientID, date, req.Time)
		if err != nil {
			handleTransitionError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func patientAppointmentsHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, ok := parseIDParam(w, r, "id", "patient_id")
		if !ok {
			return
		}

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		appointments, err := svc.ListPatientAppointments(r.Context(), patientID, limit, offset)
		if err != nil {
			writeInternalError(w, r, err)
			return
		}

		resp := make([]AppointmentResponse, 0, len(appointments))
		for i := range appointments {
			resp = append(resp, toAppointmentResponse(&appointments[i]))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func providerAppointmentsHandler(svc *schedule.Service, horizonDays int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, ok := parseIDParam(w, r, "id", "provider_id")
		if !ok {
			return
		}

		from, to, ok := parseDateRange(w, r, horizonDays)
		if !ok {
			return
		}

		appointments, err := svc.ListProviderAppointments(r.Context(), providerID, from, to)
		if err != nil {
			writeInternalError(w, r, err)
			return
		}

		resp := make([]AppointmentResponse, 0, len(appointments))
		for i := range appointments {
			resp = append(resp, toAppointmentResponse(&appointments[i]))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func parseIDParam(w http.ResponseWriter, r *http.Request, param, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

// parseDateRange reads optional from/to query params, defaulting to the
// booking horizon starting today.
func parseDateRange(w http.ResponseWriter, r *http.Request, horizonDays int) (time.Time, time.Time, bool) {
	from := time.Now().Truncate(24 * time.Hour)
	if s := r.URL.Query().Get("from"); s != "" {
		var err error
		from, err = parseDate(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_from", "from must be YYYY-MM-DD")
			return time.Time{}, time.Time{}, false
		}
	}

	to := from.AddDate(0, 0, horizonDays-1)
	if s := r.URL.Query().Get("to"); s != "" {
		var err error
		to, err = parseDate(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_to", "to must be YYYY-MM-DD")
			return time.Time{}, time.Time{}, false
		}
	}

	return from, to, true
}

func handleBookError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, schedule.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, schedule.ErrProviderNotFound):
		writeError(w, http.StatusNotFound, "provider_not_found", err.Error())
	case errors.Is(err, schedule.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot_unavailable", "slot is not available, please choose another")
	case errors.Is(err, schedule.ErrSlotBeingBooked),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	default:
		writeInternalError(w, r, err)
	}
}

func handleTransitionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, schedule.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, schedule.ErrNotOwner):
		writeError(w, http.StatusForbidden, "not_owner", err.Error())
	case errors.Is(err, schedule.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, schedule.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot_unavailable", "slot is not available, please choose another")
	case errors.Is(err, schedule.ErrSlotBeingBooked),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	default:
		writeInternalError(w, r, err)
	}
}

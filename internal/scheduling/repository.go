package scheduling

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// Postgres error codes the scheduling rules care about.
const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
)

// Repository is the PostgreSQL Store.
type Repository struct {
	db        *sql.DB
	isolation sql.IsolationLevel
}

func NewRepository(db *sql.DB, isolation sql.IsolationLevel) *Repository {
	return &Repository{db: db, isolation: isolation}
}

func (r *Repository) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: r.isolation})
	if err != nil {
		return classify("begin transaction", err)
	}
	defer tx.Rollback()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return classify("commit transaction", err)
	}
	return nil
}

// classify turns driver errors into the package sentinels.
func classify(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, op)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s: %s", ErrConflict, op, pqErr.Constraint)
		case pgSerializationFailure:
			return fmt.Errorf("%w: %s: concurrent update", ErrConflict, op)
		}
	}
	return fmt.Errorf("%w: failed to %s: %w", ErrStorage, op, err)
}

type pgTx struct {
	tx *sql.Tx
}

var _ Store = (*Repository)(nil)
var _ Tx = (*pgTx)(nil)

const doctorColumns = `
	d.id, d.user_id, u.email, d.full_name, d.specialization,
	d.registration_number, d.consultation_fee, d.is_verified, u.is_active`

// bookableDoctor limits a doctors/users join to the public directory.
const bookableDoctor = `d.is_verified AND u.is_active`

func scanDoctor(row rowScanner) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.UserID, &d.Email, &d.FullName, &d.Specialization,
		&d.RegistrationNumber, &d.ConsultationFee, &d.IsVerified, &d.IsActive)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (t *pgTx) GetDoctor(ctx context.Context, id int64) (*Doctor, error) {
	query := `SELECT` + doctorColumns + `
		FROM doctors d JOIN users u ON u.id = d.user_id
		WHERE d.id = $1`
	d, err := scanDoctor(t.tx.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, classify("get doctor", err)
	}
	return d, nil
}

func (t *pgTx) LockDoctor(ctx context.Context, id int64) (*Doctor, error) {
	query := `SELECT` + doctorColumns + `
		FROM doctors d JOIN users u ON u.id = d.user_id
		WHERE d.id = $1
		FOR UPDATE OF d`
	d, err := scanDoctor(t.tx.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, classify("lock doctor", err)
	}
	return d, nil
}

func (t *pgTx) SetDoctorVerified(ctx context.Context, id int64, verified bool) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE doctors SET is_verified = $2 WHERE id = $1`, id, verified)
	if err != nil {
		return classify("update doctor", err)
	}
	return expectRow(res, "update doctor")
}

func (t *pgTx) GetPatient(ctx context.Context, id int64) (*Patient, error) {
	query := `
		SELECT p.id, p.user_id, u.email, p.full_name, p.phone
		FROM patients p JOIN users u ON u.id = p.user_id
		WHERE p.id = $1`

	var p Patient
	err := t.tx.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.UserID, &p.Email, &p.FullName, &p.Phone)
	if err != nil {
		return nil, classify("get patient", err)
	}
	return &p, nil
}

const slotColumns = `
	id, doctor_id, day_of_week, to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'),
	slot_duration, is_active, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSlot(row rowScanner) (*TimeSlot, error) {
	var s TimeSlot
	var day, start, end string
	if err := row.Scan(&s.ID, &s.DoctorID, &day, &start, &end, &s.Duration, &s.IsActive, &s.CreatedAt); err != nil {
		return nil, err
	}
	var err error
	if s.Day, err = ParseWeekday(day); err != nil {
		return nil, err
	}
	if s.Start, err = ParseClockTime(start); err != nil {
		return nil, err
	}
	if s.End, err = ParseClockTime(end); err != nil {
		return nil, err
	}
	return &s, nil
}

func (t *pgTx) ListSlots(ctx context.Context, doctorID int64) ([]TimeSlot, error) {
	query := `SELECT` + slotColumns + `
		FROM time_slots
		WHERE doctor_id = $1
		ORDER BY CASE day_of_week
			WHEN 'Monday' THEN 1 WHEN 'Tuesday' THEN 2 WHEN 'Wednesday' THEN 3
			WHEN 'Thursday' THEN 4 WHEN 'Friday' THEN 5 WHEN 'Saturday' THEN 6
			ELSE 7 END, start_time`

	rows, err := t.tx.QueryContext(ctx, query, doctorID)
	if err != nil {
		return nil, classify("list time slots", err)
	}
	defer rows.Close()

	slots := []TimeSlot{}
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, classify("scan time slot", err)
		}
		slots = append(slots, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate time slots", err)
	}
	return slots, nil
}

func (t *pgTx) GetSlot(ctx context.Context, id int64) (*TimeSlot, error) {
	query := `SELECT` + slotColumns + ` FROM time_slots WHERE id = $1`
	s, err := scanSlot(t.tx.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, classify("get time slot", err)
	}
	return s, nil
}

func (t *pgTx) InsertSlot(ctx context.Context, slot *TimeSlot) error {
	query := `
		INSERT INTO time_slots (doctor_id, day_of_week, start_time, end_time, slot_duration, is_active)
		VALUES ($1, $2, $3::time, $4::time, $5, $6)
		RETURNING id, created_at`

	err := t.tx.QueryRowContext(ctx, query,
		slot.DoctorID,
		slot.Day.String(),
		slot.Start.String(),
		slot.End.String(),
		slot.Duration,
		slot.IsActive,
	).Scan(&slot.ID, &slot.CreatedAt)
	if err != nil {
		return classify("insert time slot", err)
	}
	return nil
}

func (t *pgTx) DeleteSlot(ctx context.Context, id int64) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM time_slots WHERE id = $1`, id)
	if err != nil {
		return classify("delete time slot", err)
	}
	return expectRow(res, "delete time slot")
}

func (t *pgTx) SetSlotActive(ctx context.Context, id int64, active bool) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE time_slots SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return classify("update time slot", err)
	}
	return expectRow(res, "update time slot")
}

func (t *pgTx) CountActiveAt(ctx context.Context, doctorID int64, date Date, at ClockTime) (int, error) {
	query := `
		SELECT COUNT(*) FROM appointments
		WHERE doctor_id = $1
		  AND appointment_date = $2::date
		  AND appointment_time = $3::time
		  AND status NOT IN ('cancelled', 'no_show')`

	var n int
	if err := t.tx.QueryRowContext(ctx, query, doctorID, date.String(), at.String()).Scan(&n); err != nil {
		return 0, classify("count appointments", err)
	}
	return n, nil
}

const appointmentColumns = `
	id, patient_id, doctor_id, to_char(appointment_date, 'YYYY-MM-DD'), to_char(appointment_time, 'HH24:MI'),
	duration, status, reason_for_visit, symptoms, diagnosis, prescription, notes,
	COALESCE(cancelled_by, ''), cancellation_reason, created_at, updated_at`

func scanAppointment(row rowScanner) (*Appointment, error) {
	var a Appointment
	var date, at, status, cancelledBy string
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &date, &at,
		&a.Duration, &status, &a.ReasonForVisit, &a.Symptoms, &a.Diagnosis, &a.Prescription, &a.Notes,
		&cancelledBy, &a.CancellationReason, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if a.Date, err = ParseDate(date); err != nil {
		return nil, err
	}
	if a.Time, err = ParseClockTime(at); err != nil {
		return nil, err
	}
	if a.Status, err = ParseStatus(status); err != nil {
		return nil, err
	}
	a.CancelledBy = Role(cancelledBy)
	return &a, nil
}

func (t *pgTx) InsertAppointment(ctx context.Context, appt *Appointment) error {
	query := `
		INSERT INTO appointments
		(patient_id, doctor_id, appointment_date, appointment_time, duration, status, reason_for_visit, symptoms)
		VALUES ($1, $2, $3::date, $4::time, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	err := t.tx.QueryRowContext(ctx, query,
		appt.PatientID,
		appt.DoctorID,
		appt.Date.String(),
		appt.Time.String(),
		appt.Duration,
		string(appt.Status),
		appt.ReasonForVisit,
		appt.Symptoms,
	).Scan(&appt.ID, &appt.CreatedAt, &appt.UpdatedAt)
	if err != nil {
		return classify("insert appointment", err)
	}
	return nil
}

func (t *pgTx) GetAppointment(ctx context.Context, id int64) (*Appointment, error) {
	query := `SELECT` + appointmentColumns + ` FROM appointments WHERE id = $1`
	a, err := scanAppointment(t.tx.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, classify("get appointment", err)
	}
	return a, nil
}

func (t *pgTx) LockAppointment(ctx context.Context, id int64) (*Appointment, error) {
	query := `SELECT` + appointmentColumns + ` FROM appointments WHERE id = $1 FOR UPDATE`
	a, err := scanAppointment(t.tx.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, classify("lock appointment", err)
	}
	return a, nil
}

func (t *pgTx) UpdateAppointment(ctx context.Context, appt *Appointment) error {
	query := `
		UPDATE appointments
		SET status = $2, diagnosis = $3, prescription = $4, notes = $5,
		    cancelled_by = NULLIF($6, ''), cancellation_reason = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := t.tx.QueryRowContext(ctx, query,
		appt.ID,
		string(appt.Status),
		appt.Diagnosis,
		appt.Prescription,
		appt.Notes,
		string(appt.CancelledBy),
		appt.CancellationReason,
	).Scan(&appt.UpdatedAt)
	if err != nil {
		return classify("update appointment", err)
	}
	return nil
}

func (t *pgTx) ListAppointments(ctx context.Context, f AppointmentFilter) ([]Appointment, int, error) {
	var where []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.PatientID != 0 {
		add("patient_id = $%d", f.PatientID)
	}
	if f.DoctorID != 0 {
		add("doctor_id = $%d", f.DoctorID)
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if len(f.Statuses) > 0 {
		names := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			names[i] = string(s)
		}
		add("status = ANY($%d)", pq.Array(names))
	}
	switch {
	case !f.Date.IsZero() && !f.DateTo.IsZero():
		add("appointment_date >= $%d::date", f.Date.String())
		add("appointment_date <= $%d::date", f.DateTo.String())
	case !f.Date.IsZero():
		add("appointment_date = $%d::date", f.Date.String())
	case !f.DateTo.IsZero():
		add("appointment_date <= $%d::date", f.DateTo.String())
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := t.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM appointments`+clause, args...).Scan(&total); err != nil {
		return nil, 0, classify("count appointments", err)
	}

	order := " ORDER BY appointment_date ASC, appointment_time ASC, id ASC"
	if f.Newest {
		order = " ORDER BY appointment_date DESC, appointment_time DESC, id DESC"
	}
	query := `SELECT` + appointmentColumns + ` FROM appointments` + clause + order
	if f.Limit > 0 {
		args = append(args, f.Limit, f.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, classify("list appointments", err)
	}
	defer rows.Close()

	out := []Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, classify("scan appointment", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, classify("iterate appointments", err)
	}
	return out, total, nil
}

func (t *pgTx) ListDoctors(ctx context.Context, f DoctorFilter) ([]Doctor, int, error) {
	where := []string{bookableDoctor}
	var args []any
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+likeEscaper.Replace(s)+"%")
		where = append(where, fmt.Sprintf("(d.full_name ILIKE $%d OR d.specialization ILIKE $%d)", len(args), len(args)))
	}
	if s := strings.TrimSpace(f.Specialization); s != "" {
		args = append(args, s)
		where = append(where, fmt.Sprintf("d.specialization = $%d", len(args)))
	}
	from := ` FROM doctors d JOIN users u ON u.id = d.user_id WHERE ` + strings.Join(where, " AND ")

	var total int
	if err := t.tx.QueryRowContext(ctx, `SELECT COUNT(*)`+from, args...).Scan(&total); err != nil {
		return nil, 0, classify("count doctors", err)
	}

	query := `SELECT` + doctorColumns + from + ` ORDER BY d.full_name ASC, d.id ASC`
	if f.Limit > 0 {
		args = append(args, f.Limit, f.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, classify("list doctors", err)
	}
	defer rows.Close()

	out := []Doctor{}
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, 0, classify("scan doctor", err)
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, classify("iterate doctors", err)
	}
	return out, total, nil
}

func (t *pgTx) ListSpecializations(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT d.specialization
		FROM doctors d JOIN users u ON u.id = d.user_id
		WHERE ` + bookableDoctor + ` AND d.specialization <> ''
		ORDER BY d.specialization`

	rows, err := t.tx.QueryContext(ctx, query)
	if err != nil {
		return nil, classify("list specializations", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, classify("scan specialization", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate specializations", err)
	}
	return out, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func expectRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return classify(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, op)
	}
	return nil
}

package scheduling

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/WailSalutem-Health-Care/appointment-service/internal/notification"
)

// memStore is an in-memory Store. InTx serializes callers and works on a
// copy of the state that is kept only when fn succeeds.
type memStore struct {
	mu    sync.Mutex
	state memState

	// failInsert, when set, is returned by InsertAppointment.
	failInsert error
	txCount    int
}

type memState struct {
	doctors      map[int64]Doctor
	patients     map[int64]Patient
	slots        map[int64]TimeSlot
	appointments map[int64]Appointment
	nextSlot     int64
	nextAppt     int64
}

func newMemStore() *memStore {
	return &memStore{state: memState{
		doctors:      map[int64]Doctor{},
		patients:     map[int64]Patient{},
		slots:        map[int64]TimeSlot{},
		appointments: map[int64]Appointment{},
	}}
}

func (s memState) clone() memState {
	return memState{
		doctors:      maps.Clone(s.doctors),
		patients:     maps.Clone(s.patients),
		slots:        maps.Clone(s.slots),
		appointments: maps.Clone(s.appointments),
		nextSlot:     s.nextSlot,
		nextAppt:     s.nextAppt,
	}
}

func (m *memStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txCount++

	work := m.state.clone()
	if err := fn(&memTx{s: &work, failInsert: m.failInsert}); err != nil {
		return err
	}
	m.state = work
	return nil
}

func (m *memStore) addDoctor(d Doctor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.doctors[d.ID] = d
}

func (m *memStore) addPatient(p Patient) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.patients[p.ID] = p
}

func (m *memStore) appointment(id int64) Appointment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.appointments[id]
}

func (m *memStore) appointmentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.appointments)
}

func (m *memStore) slotCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.slots)
}

type memTx struct {
	s          *memState
	failInsert error
}

func (t *memTx) GetDoctor(ctx context.Context, id int64) (*Doctor, error) {
	d, ok := t.s.doctors[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (t *memTx) LockDoctor(ctx context.Context, id int64) (*Doctor, error) {
	return t.GetDoctor(ctx, id)
}

func (t *memTx) SetDoctorVerified(ctx context.Context, id int64, verified bool) error {
	d, ok := t.s.doctors[id]
	if !ok {
		return ErrNotFound
	}
	d.IsVerified = verified
	t.s.doctors[id] = d
	return nil
}

func (t *memTx) GetPatient(ctx context.Context, id int64) (*Patient, error) {
	p, ok := t.s.patients[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (t *memTx) ListSlots(ctx context.Context, doctorID int64) ([]TimeSlot, error) {
	var out []TimeSlot
	for _, s := range t.s.slots {
		if s.DoctorID == doctorID {
			out = append(out, s)
		}
	}
	SortSlots(out)
	return out, nil
}

func (t *memTx) GetSlot(ctx context.Context, id int64) (*TimeSlot, error) {
	s, ok := t.s.slots[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (t *memTx) InsertSlot(ctx context.Context, slot *TimeSlot) error {
	t.s.nextSlot++
	slot.ID = t.s.nextSlot
	slot.CreatedAt = time.Now()
	t.s.slots[slot.ID] = *slot
	return nil
}

func (t *memTx) DeleteSlot(ctx context.Context, id int64) error {
	if _, ok := t.s.slots[id]; !ok {
		return ErrNotFound
	}
	delete(t.s.slots, id)
	return nil
}

func (t *memTx) SetSlotActive(ctx context.Context, id int64, active bool) error {
	s, ok := t.s.slots[id]
	if !ok {
		return ErrNotFound
	}
	s.IsActive = active
	t.s.slots[id] = s
	return nil
}

func (t *memTx) CountActiveAt(ctx context.Context, doctorID int64, date Date, at ClockTime) (int, error) {
	n := 0
	for _, a := range t.s.appointments {
		if a.DoctorID == doctorID && a.Date == date && a.Time == at && a.Status.HoldsSlot() {
			n++
		}
	}
	return n, nil
}

// InsertAppointment mirrors the partial unique index on live bookings.
func (t *memTx) InsertAppointment(ctx context.Context, appt *Appointment) error {
	if t.failInsert != nil {
		return t.failInsert
	}
	if n, _ := t.CountActiveAt(ctx, appt.DoctorID, appt.Date, appt.Time); n > 0 {
		return ErrConflict
	}
	t.s.nextAppt++
	appt.ID = t.s.nextAppt
	appt.CreatedAt = time.Now()
	appt.UpdatedAt = appt.CreatedAt
	t.s.appointments[appt.ID] = *appt
	return nil
}

func (t *memTx) GetAppointment(ctx context.Context, id int64) (*Appointment, error) {
	a, ok := t.s.appointments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (t *memTx) LockAppointment(ctx context.Context, id int64) (*Appointment, error) {
	return t.GetAppointment(ctx, id)
}

func (t *memTx) UpdateAppointment(ctx context.Context, appt *Appointment) error {
	if _, ok := t.s.appointments[appt.ID]; !ok {
		return ErrNotFound
	}
	appt.UpdatedAt = time.Now()
	t.s.appointments[appt.ID] = *appt
	return nil
}

func (t *memTx) ListAppointments(ctx context.Context, f AppointmentFilter) ([]Appointment, int, error) {
	var out []Appointment
	for _, a := range t.s.appointments {
		switch {
		case f.PatientID != 0 && a.PatientID != f.PatientID,
			f.DoctorID != 0 && a.DoctorID != f.DoctorID,
			f.Status != "" && a.Status != f.Status,
			len(f.Statuses) > 0 && !slices.Contains(f.Statuses, a.Status):
			continue
		}
		if !f.Date.IsZero() && f.DateTo.IsZero() && a.Date != f.Date {
			continue
		}
		if !f.Date.IsZero() && !f.DateTo.IsZero() && (a.Date.Before(f.Date) || a.Date.After(f.DateTo)) {
			continue
		}
		if f.Date.IsZero() && !f.DateTo.IsZero() && a.Date.After(f.DateTo) {
			continue
		}
		out = append(out, a)
	}

	slices.SortFunc(out, func(a, b Appointment) int {
		c := compareAppointments(a, b)
		if f.Newest {
			return -c
		}
		return c
	})

	total := len(out)
	if f.Limit > 0 {
		start := min(f.Offset, total)
		end := min(start+f.Limit, total)
		out = out[start:end]
	}
	return out, total, nil
}

func (t *memTx) ListDoctors(ctx context.Context, f DoctorFilter) ([]Doctor, int, error) {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	spec := strings.TrimSpace(f.Specialization)
	var out []Doctor
	for _, d := range t.s.doctors {
		if d.Bookable() != nil {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(d.FullName), search) && !strings.Contains(strings.ToLower(d.Specialization), search) {
			continue
		}
		if spec != "" && d.Specialization != spec {
			continue
		}
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b Doctor) int {
		return cmp.Or(cmp.Compare(a.FullName, b.FullName), cmp.Compare(a.ID, b.ID))
	})

	total := len(out)
	if f.Limit > 0 {
		start := min(f.Offset, total)
		end := min(start+f.Limit, total)
		out = out[start:end]
	}
	return out, total, nil
}

func (t *memTx) ListSpecializations(ctx context.Context) ([]string, error) {
	var out []string
	for _, d := range t.s.doctors {
		if d.Bookable() == nil && d.Specialization != "" && !slices.Contains(out, d.Specialization) {
			out = append(out, d.Specialization)
		}
	}
	slices.Sort(out)
	return out, nil
}

func compareAppointments(a, b Appointment) int {
	switch {
	case a.Date.Before(b.Date):
		return -1
	case a.Date.After(b.Date):
		return 1
	case a.Time != b.Time:
		return int(a.Time - b.Time)
	}
	return int(a.ID - b.ID)
}

var _ Store = (*memStore)(nil)
var _ Tx = (*memTx)(nil)

// mockNotifier records intents and can be told to fail every Enqueue.
type mockNotifier struct {
	mu      sync.Mutex
	intents []notification.Intent
	err     error
}

func (n *mockNotifier) Enqueue(ctx context.Context, intent notification.Intent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.intents = append(n.intents, intent)
	return nil
}

func (n *mockNotifier) events() []notification.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notification.Event, len(n.intents))
	for i, in := range n.intents {
		out[i] = in.Event
	}
	return out
}

func (n *mockNotifier) find(event notification.Event) (notification.Intent, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, in := range n.intents {
		if in.Event == event {
			return in, true
		}
	}
	return notification.Intent{}, false
}

func (n *mockNotifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.intents = nil
}

package schedule

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/careslot/scheduling/internal/models"
)

// memStore holds in-memory state shared by the store facets below
type memStore struct {
	availabilities map[uuid.UUID]*models.Availability
	slots          map[string]models.Slot
	profiles       map[string]*models.ProviderProfile

	batchInsertErr error // forces BatchInsert to fail, exercising fallback
}

func newMemStore() *memStore {
	return &memStore{
		availabilities: make(map[uuid.UUID]*models.Availability),
		slots:          make(map[string]models.Slot),
		profiles:       make(map[string]*models.ProviderProfile),
	}
}

func (m *memStore) avails() *memAvailabilityStore { return &memAvailabilityStore{m} }
func (m *memStore) slotStore() *memSlotStore      { return &memSlotStore{m} }
func (m *memStore) profileStore() *memProfileStore {
	return &memProfileStore{m}
}

func slotKey(s models.Slot) string {
	return fmt.Sprintf("%s|%d|%s", s.AvailabilityID, s.StartAt.Unix(), s.SlotDate.Format("2006-01-02"))
}

func profileKey(providerID, locationID uuid.UUID) string {
	return providerID.String() + "|" + locationID.String()
}

func (m *memStore) putProfile(p *models.ProviderProfile) {
	m.profiles[profileKey(p.ProviderID, p.LocationID)] = p
}

func (m *memStore) putAvailability(a *models.Availability) {
	cp := *a
	m.availabilities[a.ID] = &cp
}

func (m *memStore) slotsFor(availabilityID uuid.UUID) []models.Slot {
	var out []models.Slot
	for _, s := range m.slots {
		if s.AvailabilityID == availabilityID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.Before(out[j].StartAt) })
	return out
}

type memAvailabilityStore struct{ *memStore }

func (m *memAvailabilityStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Availability, error) {
	a, ok := m.availabilities[id]
	if !ok {
		return nil, &NotFoundError{Kind: "availability", ID: id.String()}
	}
	cp := *a
	return &cp, nil
}

func (m *memAvailabilityStore) ActiveByProvider(ctx context.Context, providerID uuid.UUID, exclude *uuid.UUID) ([]models.Availability, error) {
	var out []models.Availability
	for _, a := range m.availabilities {
		if a.ProviderID != providerID || !a.Active() {
			continue
		}
		if exclude != nil && a.ID == *exclude {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (m *memAvailabilityStore) ListAdvanceable(ctx context.Context) ([]models.Availability, error) {
	var out []models.Availability
	for _, a := range m.availabilities {
		if a.Status != models.StatusApproved || a.Kind == models.KindOneTime {
			continue
		}
		if a.Deleted || a.Deactivated || a.Expired {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (m *memAvailabilityStore) ListExpiryCandidates(ctx context.Context) ([]models.Availability, error) {
	var out []models.Availability
	for _, a := range m.availabilities {
		if a.Status != models.StatusApproved || a.Deleted || a.Expired {
			continue
		}
		if a.Date == nil && a.EndDate == nil {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (m *memAvailabilityStore) List(ctx context.Context, providerID *uuid.UUID, status *models.AvailabilityStatus) ([]models.Availability, error) {
	var out []models.Availability
	for _, a := range m.availabilities {
		if a.Deleted {
			continue
		}
		if providerID != nil && a.ProviderID != *providerID {
			continue
		}
		if status != nil && a.Status != *status {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (m *memAvailabilityStore) Create(ctx context.Context, a *models.Availability) error {
	if _, ok := m.availabilities[a.ID]; ok {
		return fmt.Errorf("availability %s already exists", a.ID)
	}
	m.putAvailability(a)
	return nil
}

func (m *memAvailabilityStore) Update(ctx context.Context, a *models.Availability) error {
	if _, ok := m.availabilities[a.ID]; !ok {
		return &NotFoundError{Kind: "availability", ID: a.ID.String()}
	}
	m.putAvailability(a)
	return nil
}

func (m *memAvailabilityStore) SetLastMaterializedDate(ctx context.Context, id uuid.UUID, date time.Time) error {
	a, ok := m.availabilities[id]
	if !ok {
		return &NotFoundError{Kind: "availability", ID: id.String()}
	}
	d := date
	a.LastMaterializedDate = &d
	return nil
}

func (m *memAvailabilityStore) MarkExpired(ctx context.Context, id uuid.UUID) error {
	a, ok := m.availabilities[id]
	if !ok {
		return &NotFoundError{Kind: "availability", ID: id.String()}
	}
	a.Expired = true
	return nil
}

type memSlotStore struct{ *memStore }

func (m *memSlotStore) BatchInsert(ctx context.Context, slots []models.Slot) (int, error) {
	if m.batchInsertErr != nil {
		return 0, m.batchInsertErr
	}
	created := 0
	for _, s := range slots {
		key := slotKey(s)
		if _, ok := m.slots[key]; ok {
			continue
		}
		m.slots[key] = s
		created++
	}
	return created, nil
}

func (m *memSlotStore) Insert(ctx context.Context, slot models.Slot) error {
	key := slotKey(slot)
	if _, ok := m.slots[key]; ok {
		return ErrDuplicateSlot
	}
	m.slots[key] = slot
	return nil
}

func (m *memSlotStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Slot, error) {
	for _, s := range m.slots {
		if s.ID == id {
			cp := s
			return &cp, nil
		}
	}
	return nil, &NotFoundError{Kind: "slot", ID: id.String()}
}

func (m *memSlotStore) ListByAvailability(ctx context.Context, availabilityID uuid.UUID) ([]models.Slot, error) {
	return m.slotsFor(availabilityID), nil
}

func (m *memSlotStore) DeleteAvailableFrom(ctx context.Context, availabilityID uuid.UUID, from time.Time) (int64, error) {
	var removed int64
	for key, s := range m.slots {
		if s.AvailabilityID == availabilityID && s.Status == models.SlotAvailable && !s.StartAt.Before(from) {
			delete(m.slots, key)
			removed++
		}
	}
	return removed, nil
}

func (m *memSlotStore) UpdateStatus(ctx context.Context, id uuid.UUID, status models.SlotStatus, appointmentID *uuid.UUID) error {
	for key, s := range m.slots {
		if s.ID == id {
			s.Status = status
			s.AppointmentID = appointmentID
			m.slots[key] = s
			return nil
		}
	}
	return &NotFoundError{Kind: "slot", ID: id.String()}
}

type memProfileStore struct{ *memStore }

func (m *memProfileStore) Get(ctx context.Context, providerID, locationID uuid.UUID) (*models.ProviderProfile, error) {
	p, ok := m.profiles[profileKey(providerID, locationID)]
	if !ok {
		return nil, &NotFoundError{Kind: "provider profile", ID: profileKey(providerID, locationID)}
	}
	return p, nil
}

// Package inmem provides an in-memory Repository used by tests and local
// development. Semantics mirror the Postgres implementation, including the
// duplicate-submission rules and the atomicity of the approve sequence.
package inmem

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ecotrack/internal/model"
	"ecotrack/internal/repo"
)

type DB struct {
	mu sync.Mutex

	users        map[int64]*model.User
	events       map[int64]*model.Event
	participants map[string]*model.EventParticipant
	logs         map[int64]*model.RecyclingLog
	notifs       []model.Notification
	sysLogs      []model.SystemLogEntry
	settings     map[string]string

	nextLogID   int64
	nextEventID int64
	nextUserID  int64
}

var _ repo.Repository = (*DB)(nil)

func Open() *DB {
	return &DB{
		users:        make(map[int64]*model.User),
		events:       make(map[int64]*model.Event),
		participants: make(map[string]*model.EventParticipant),
		logs:         make(map[int64]*model.RecyclingLog),
		settings:     make(map[string]string),
	}
}

func pairKey(eventID, userID int64) string { return fmt.Sprintf("%d:%d", eventID, userID) }

// Seed helpers.

func (d *DB) AddUser(u model.User) model.User {
	d.mu.Lock()
	defer d.mu.Unlock()
	if u.ID == 0 {
		d.nextUserID++
		u.ID = d.nextUserID
	} else if u.ID > d.nextUserID {
		d.nextUserID = u.ID
	}
	d.users[u.ID] = &u
	return u
}

func (d *DB) AddEvent(e model.Event) model.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e.ID == 0 {
		d.nextEventID++
		e.ID = d.nextEventID
	} else if e.ID > d.nextEventID {
		d.nextEventID = e.ID
	}
	d.events[e.ID] = &e
	return e
}

func (d *DB) RemoveEvent(id int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.events, id)
}

func (d *DB) SetEventReward(id int64, reward int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.events[id]; ok {
		e.EcoPointsReward = reward
	}
}

// Inspection helpers.

func (d *DB) User(id int64) model.User {
	d.mu.Lock()
	defer d.mu.Unlock()
	if u, ok := d.users[id]; ok {
		return *u
	}
	return model.User{}
}

func (d *DB) Participant(eventID, userID int64) (model.EventParticipant, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.participants[pairKey(eventID, userID)]; ok {
		return *p, true
	}
	return model.EventParticipant{}, false
}

func (d *DB) Notifications(userID int64) []model.Notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []model.Notification
	for _, n := range d.notifs {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

func (d *DB) SystemLogs() []model.SystemLogEntry {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]model.SystemLogEntry(nil), d.sysLogs...)
}

func (d *DB) LogCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.logs)
}

// Repository implementation.

func (d *DB) CreateLogTx(_ context.Context, p repo.SubmitLogParams) (*model.RecyclingLog, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p.EventID != nil {
		if _, ok := d.events[*p.EventID]; !ok {
			return nil, repo.ErrEventNotFound
		}
		if _, ok := d.participants[pairKey(*p.EventID, p.UserID)]; !ok {
			return nil, repo.ErrNotRegistered
		}
		for _, l := range d.logs {
			if l.UserID == p.UserID && l.EventID != nil && *l.EventID == *p.EventID {
				return nil, repo.ErrDuplicateSubmission
			}
		}
	} else {
		for _, l := range d.logs {
			if l.UserID == p.UserID && l.EventID == nil && l.Category == p.Category && l.Weight == p.Weight {
				return nil, repo.ErrDuplicateSubmission
			}
		}
	}

	d.nextLogID++
	l := &model.RecyclingLog{
		ID:             d.nextLogID,
		UserID:         p.UserID,
		Category:       p.Category,
		Weight:         p.Weight,
		Description:    p.Description,
		ImageRef:       p.ImageRef,
		EventID:        p.EventID,
		VolunteerHours: p.VolunteerHours,
		CreatedAt:      time.Now(),
	}
	d.logs[l.ID] = l
	return d.enrich(l), nil
}

func (d *DB) enrich(l *model.RecyclingLog) *model.RecyclingLog {
	out := *l
	if u, ok := d.users[l.UserID]; ok {
		out.UserName = u.Name
	}
	if l.EventID != nil {
		if e, ok := d.events[*l.EventID]; ok {
			out.EventName = e.Name
		}
	}
	return &out
}

func (d *DB) GetLogByID(_ context.Context, id int64) (*model.RecyclingLog, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.logs[id]
	if !ok {
		return nil, repo.ErrLogNotFound
	}
	return d.enrich(l), nil
}

func (d *DB) GetLogsByUser(_ context.Context, userID int64) ([]model.RecyclingLog, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []model.RecyclingLog
	for id := int64(1); id <= d.nextLogID; id++ {
		if l, ok := d.logs[id]; ok && l.UserID == userID {
			out = append(out, *d.enrich(l))
		}
	}
	return out, nil
}

func (d *DB) GetPendingLogs(_ context.Context) ([]model.RecyclingLog, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []model.RecyclingLog
	for id := int64(1); id <= d.nextLogID; id++ {
		if l, ok := d.logs[id]; ok && !l.Verified {
			out = append(out, *d.enrich(l))
		}
	}
	return out, nil
}

func (d *DB) GetPendingEventLogIDs(_ context.Context) ([]int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var ids []int64
	for id := int64(1); id <= d.nextLogID; id++ {
		if l, ok := d.logs[id]; ok && !l.Verified && l.EventID != nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (d *DB) ApproveLogTx(_ context.Context, logID, actorID int64) (*model.RecyclingLog, int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	l, ok := d.logs[logID]
	if !ok {
		return nil, 0, repo.ErrLogNotFound
	}
	if l.Verified {
		return nil, 0, repo.ErrAlreadyVerified
	}
	if l.EventID == nil {
		return nil, 0, repo.ErrEventNotFound
	}
	e, ok := d.events[*l.EventID]
	if !ok {
		return nil, 0, repo.ErrEventNotFound
	}

	reward := e.EcoPointsReward
	now := time.Now()
	l.Verified = true
	l.VerifiedBy = &actorID
	l.VerifiedAt = &now
	l.EcoPointsEarned = reward

	if u, ok := d.users[l.UserID]; ok {
		u.EcoPoints += reward
	}
	if p, ok := d.participants[pairKey(*l.EventID, l.UserID)]; ok {
		p.Attended = true
	}
	d.notifs = append(d.notifs, model.Notification{
		ID:        int64(len(d.notifs) + 1),
		UserID:    l.UserID,
		Title:     "Recycling log approved",
		Message:   fmt.Sprintf("Your recycling log for %q was approved. You earned %d eco-points!", e.Name, reward),
		Type:      "log_approved",
		CreatedAt: now,
	})

	return d.enrich(l), reward, nil
}

func (d *DB) RejectLogTx(_ context.Context, logID int64, reason string) (*model.RecyclingLog, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	l, ok := d.logs[logID]
	if !ok {
		return nil, repo.ErrLogNotFound
	}
	if l.Verified {
		return nil, repo.ErrAlreadyVerified
	}

	delete(d.logs, logID)
	d.notifs = append(d.notifs, model.Notification{
		ID:        int64(len(d.notifs) + 1),
		UserID:    l.UserID,
		Title:     "Recycling log rejected",
		Message:   fmt.Sprintf("Your %s recycling log was rejected: %s", l.Category, reason),
		Type:      "log_rejected",
		CreatedAt: time.Now(),
	})

	out := *l
	return &out, nil
}

func (d *DB) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return nil, repo.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (d *DB) CreateEvent(_ context.Context, e *model.Event) (int64, error) {
	created := d.AddEvent(*e)
	return created.ID, nil
}

func (d *DB) GetEventByID(_ context.Context, id int64) (*model.Event, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.events[id]
	if !ok {
		return nil, repo.ErrEventNotFound
	}
	out := *e
	return &out, nil
}

func (d *DB) GetAllEvents(_ context.Context) ([]model.Event, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []model.Event
	for id := int64(1); id <= d.nextEventID; id++ {
		if e, ok := d.events[id]; ok {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (d *DB) RegisterParticipant(_ context.Context, eventID, userID int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.events[eventID]; !ok {
		return repo.ErrEventNotFound
	}
	key := pairKey(eventID, userID)
	if _, ok := d.participants[key]; !ok {
		d.participants[key] = &model.EventParticipant{EventID: eventID, UserID: userID}
	}
	return nil
}

func (d *DB) GetSettingBool(_ context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v := d.settings[key]
	return v == "true" || v == "1", nil
}

func (d *DB) SetSetting(_ context.Context, key, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.settings[key] = value
	return nil
}

func (d *DB) InsertSystemLog(_ context.Context, action, details string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sysLogs = append(d.sysLogs, model.SystemLogEntry{
		ID:        int64(len(d.sysLogs) + 1),
		Action:    action,
		Details:   details,
		CreatedAt: time.Now(),
	})
	return nil
}

func (d *DB) MigrateUp(string) error { return nil }

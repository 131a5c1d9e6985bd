package recycling

import (
	"context"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"ecotrack/internal/dto"
	"ecotrack/internal/model"
	"ecotrack/internal/repo/inmem"
)

func submitReq(category, weight, eventID string) dto.SubmitLogRequest {
	return dto.SubmitLogRequest{
		Category: category,
		Weight:   weight,
		EventID:  eventID,
	}
}

func eventIDStr(id int64) string { return strconv.FormatInt(id, 10) }

type fakeImageStore struct {
	mu      sync.Mutex
	nextRef string
	saveErr error
	saved   []string
	deleted []string
	delErr  error
}

func (f *fakeImageStore) Save(data []byte, origName string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return "", f.saveErr
	}
	ref := f.nextRef
	if ref == "" {
		ref = "img-" + origName
	}
	f.saved = append(f.saved, ref)
	return ref, nil
}

func (f *fakeImageStore) Delete(ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delErr != nil {
		return f.delErr
	}
	f.deleted = append(f.deleted, ref)
	return nil
}

type fakePublisher struct {
	mu       sync.Mutex
	messages [][]byte
	err      error
}

func (f *fakePublisher) Publish(message []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, message)
	return nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

type env struct {
	db     *inmem.DB
	files  *fakeImageStore
	bus    *fakePublisher
	engine *Engine
	sub    *Submitter

	student   model.Actor
	volunteer model.Actor
	admin     model.Actor
}

func newEnv() *env {
	logger := zerolog.Nop()
	db := inmem.Open()
	files := &fakeImageStore{}
	bus := &fakePublisher{}

	e := &env{
		db:     db,
		files:  files,
		bus:    bus,
		engine: NewEngine(db, files, bus, &logger),
		sub:    NewSubmitter(db, files, &logger),
	}

	student := db.AddUser(model.User{Name: "Sam Student", Email: "sam@campus.edu", Role: model.RoleStudent})
	volunteer := db.AddUser(model.User{Name: "Val Volunteer", Email: "val@campus.edu", Role: model.RoleVolunteer})
	admin := db.AddUser(model.User{Name: "Ada Admin", Email: "ada@campus.edu", Role: model.RoleAdmin})

	e.student = model.Actor{ID: student.ID, Role: student.Role}
	e.volunteer = model.Actor{ID: volunteer.ID, Role: volunteer.Role}
	e.admin = model.Actor{ID: admin.ID, Role: admin.Role}
	return e
}

// seedEventWithRegistration creates an event and registers the given user.
func (e *env) seedEventWithRegistration(reward int, userID int64) model.Event {
	event := e.db.AddEvent(model.Event{Name: "Campus Cleanup", EcoPointsReward: reward, Status: "active"})
	_ = e.db.RegisterParticipant(context.Background(), event.ID, userID)
	return event
}

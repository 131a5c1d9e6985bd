package model

import "time"

const (
	RoleStudent   = "student"
	RoleVolunteer = "volunteer"
	RoleOrganizer = "organizer"
	RoleAdmin     = "admin"
	RoleSystem    = "system"
)

// SystemActorID is the reserved principal id used by the auto-approval
// scheduler. It is stored as verified_by=0 and never matches a real user row.
const SystemActorID int64 = 0

// Actor is the authenticated principal injected by the identity middleware.
type Actor struct {
	ID   int64
	Role string
}

func (a Actor) IsAdmin() bool  { return a.Role == RoleAdmin }
func (a Actor) IsSystem() bool { return a.Role == RoleSystem && a.ID == SystemActorID }

// CanVerify reports whether the actor may run the verification engine.
func (a Actor) CanVerify() bool { return a.IsAdmin() || a.IsSystem() }

type User struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Role      string    `db:"role" json:"role"`
	EcoPoints int       `db:"eco_points" json:"eco_points"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Event struct {
	ID              int64     `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	Description     string    `db:"description,omitempty" json:"description,omitempty"`
	EcoPointsReward int       `db:"eco_points_reward" json:"eco_points_reward"`
	Status          string    `db:"status" json:"status"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

type EventParticipant struct {
	EventID  int64 `db:"event_id" json:"event_id"`
	UserID   int64 `db:"user_id" json:"user_id"`
	Attended bool  `db:"attended" json:"attended"`
}

type RecyclingLog struct {
	ID              int64      `db:"id" json:"id"`
	UserID          int64      `db:"user_id" json:"user_id"`
	Category        string     `db:"category" json:"category"`
	Weight          float64    `db:"weight" json:"weight"`
	Description     string     `db:"description,omitempty" json:"description,omitempty"`
	ImageRef        *string    `db:"image_ref" json:"image_ref,omitempty"`
	EventID         *int64     `db:"event_id" json:"event_id,omitempty"`
	Verified        bool       `db:"verified" json:"verified"`
	VerifiedBy      *int64     `db:"verified_by" json:"verified_by,omitempty"`
	VerifiedAt      *time.Time `db:"verified_at" json:"verified_at,omitempty"`
	EcoPointsEarned int        `db:"eco_points_earned" json:"eco_points_earned"`
	VolunteerHours  int        `db:"volunteer_hours" json:"volunteer_hours"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`

	// Joined display fields, populated on reads.
	UserName  string `db:"user_name" json:"user_name,omitempty"`
	EventName string `db:"event_name" json:"event_name,omitempty"`
}

type Notification struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Title     string    `db:"title" json:"title"`
	Message   string    `db:"message" json:"message"`
	Type      string    `db:"type" json:"type"`
	Read      bool      `db:"read" json:"read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type SystemLogEntry struct {
	ID        int64     `db:"id" json:"id"`
	Action    string    `db:"action" json:"action"`
	Details   string    `db:"details" json:"details"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SettingAutoApproval gates the auto-approval scheduler. It is read fresh on
// every tick so flipping it takes effect within one interval.
const SettingAutoApproval = "auto_approval_enabled"

var categories = map[string]struct{}{
	"plastic":     {},
	"paper":       {},
	"metal":       {},
	"glass":       {},
	"electronics": {},
	"organic":     {},
	"other":       {},
}

func ValidCategory(c string) bool {
	_, ok := categories[c]
	return ok
}

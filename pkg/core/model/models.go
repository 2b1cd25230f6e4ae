package model

import "time"

// ShiftStatus is the derived availability state of a shift or slot.
type ShiftStatus string

const (
	ShiftOpen      ShiftStatus = "open"
	ShiftFull      ShiftStatus = "full"
	ShiftClosed    ShiftStatus = "closed"
	ShiftCancelled ShiftStatus = "cancelled"
)

func (s ShiftStatus) IsValid() bool {
	return s == ShiftOpen || s == ShiftFull || s == ShiftClosed || s == ShiftCancelled
}

// Allocatable reports whether the shift can still admit participants.
func (s ShiftStatus) Allocatable() bool {
	return s == ShiftOpen
}

// ShiftType classifies the kind of duty a shift covers.
type ShiftType string

const (
	ShiftTypeDay     ShiftType = "day"
	ShiftTypeNight   ShiftType = "night"
	ShiftTypeStandby ShiftType = "standby"
)

// PriorityTier orders shifts by operational importance.
type PriorityTier string

const (
	TierRoutine  PriorityTier = "routine"
	TierElevated PriorityTier = "elevated"
	TierCritical PriorityTier = "critical"
)

// Shift is a bounded-capacity duty window requiring volunteer coverage.
type Shift struct {
	ID                  string
	Scope               string // geographic scope identifier
	Date                time.Time
	StartTime           time.Time
	EndTime             time.Time
	MinParticipants     int
	MaxParticipants     int
	CurrentParticipants int
	Version             int64 // bumped on every occupancy write
	Status              ShiftStatus
	Type                ShiftType
	Tier                PriorityTier
	TemplateID          string // empty when not expanded from a template
	DeletedAt           *time.Time
}

// Slot is an optional finer subdivision of a shift with its own capacity
// bounds. When a shift has no slots the shift itself is the allocation unit.
type Slot struct {
	ID                   string
	ShiftID              string
	StartTime            time.Time
	EndTime              time.Time
	MinParticipants      int
	MaxParticipants      int
	CurrentParticipants  int
	Version              int64
	Status               ShiftStatus
	RequiredCapabilities []string
}

// AssignmentType records how a member came to be bound to a shift.
type AssignmentType string

const (
	AssignmentVoluntary   AssignmentType = "voluntary"
	AssignmentAssigned    AssignmentType = "assigned"
	AssignmentAutomatic   AssignmentType = "automatic"
	AssignmentWaitingList AssignmentType = "waiting_list"
)

func (t AssignmentType) IsValid() bool {
	switch t {
	case AssignmentVoluntary, AssignmentAssigned, AssignmentAutomatic, AssignmentWaitingList:
		return true
	}
	return false
}

// AssignmentStatus is the lifecycle state of a member-to-shift binding.
type AssignmentStatus string

const (
	AssignmentPending   AssignmentStatus = "pending"
	AssignmentConfirmed AssignmentStatus = "confirmed"
	AssignmentCancelled AssignmentStatus = "cancelled"
	AssignmentCompleted AssignmentStatus = "completed"
)

// Active reports whether the assignment currently holds a seat.
func (s AssignmentStatus) Active() bool {
	return s == AssignmentPending || s == AssignmentConfirmed
}

// Terminal reports whether no further transition is allowed.
func (s AssignmentStatus) Terminal() bool {
	return s == AssignmentCancelled || s == AssignmentCompleted
}

// CanTransitionTo enforces the assignment state machine:
// pending → confirmed → completed, with cancelled reachable from
// pending or confirmed.
func (s AssignmentStatus) CanTransitionTo(next AssignmentStatus) bool {
	switch s {
	case AssignmentPending:
		return next == AssignmentConfirmed || next == AssignmentCancelled
	case AssignmentConfirmed:
		return next == AssignmentCompleted || next == AssignmentCancelled
	}
	return false
}

// CancellationBand classifies a cancellation by lead time before shift start.
type CancellationBand string

const (
	BandNormal CancellationBand = "normal"
	BandEarly  CancellationBand = "early"
	BandLate   CancellationBand = "late"
)

// Assignment binds one member to one shift (or slot) with a lifecycle.
type Assignment struct {
	ID       string
	ShiftID  string
	SlotID   string // empty when the shift is the allocation unit
	MemberID string
	Type     AssignmentType
	Status   AssignmentStatus

	CancellationBand   CancellationBand
	CancellationReason string
	CancelledAt        *time.Time

	CheckInAt   *time.Time
	CheckOutAt  *time.Time
	CompletedAt *time.Time

	Rating   int // 0 when unrated
	Feedback string

	CreatedAt time.Time
}

// ReplacementStatus is the state of a substitute search attached to a
// cancelled assignment. A missing record means no replacement was sought.
type ReplacementStatus string

const (
	ReplacementPending  ReplacementStatus = "pending"
	ReplacementAccepted ReplacementStatus = "accepted"
	ReplacementRejected ReplacementStatus = "rejected"
	ReplacementExpired  ReplacementStatus = "expired"
)

// Terminal reports whether the workflow is settled.
func (s ReplacementStatus) Terminal() bool {
	return s == ReplacementAccepted || s == ReplacementRejected || s == ReplacementExpired
}

// Replacement is a time-boxed search for a substitute after a cancellation
// threatens minimum coverage. The cancelled seat stays reserved until the
// workflow settles.
type Replacement struct {
	ID                string
	AssignmentID      string
	ShiftID           string
	SlotID            string
	CandidateMemberID string
	Deadline          time.Time
	Status            ReplacementStatus
	RequestedAt       time.Time
	RespondedAt       *time.Time
}

// WaitingStatus is the lifecycle state of a waiting-list entry.
type WaitingStatus string

const (
	WaitingPending   WaitingStatus = "pending"
	WaitingActivated WaitingStatus = "activated"
	WaitingAssigned  WaitingStatus = "assigned"
	WaitingExpired   WaitingStatus = "expired"
	WaitingCancelled WaitingStatus = "cancelled"
)

// Active reports whether the entry still occupies a place in the queue.
func (s WaitingStatus) Active() bool {
	return s == WaitingPending || s == WaitingActivated
}

// WaitingResponse records how a member answered an activation offer.
type WaitingResponse string

const (
	ResponseAccepted   WaitingResponse = "accepted"
	ResponseDeclined   WaitingResponse = "declined"
	ResponseNoResponse WaitingResponse = "no_response"
	ResponseNone       WaitingResponse = ""
)

// WaitingListEntry is a member's place in the priority queue for a full shift.
type WaitingListEntry struct {
	ID       string
	MemberID string
	ShiftID  string
	SlotID   string
	Scope    string

	TargetDate time.Time
	Priority   int // lower is served first, domain [1,200]
	Status     WaitingStatus

	ActivationDate   time.Time // shift date minus the activation lead
	ResponseDeadline *time.Time
	Response         WaitingResponse
	RespondedAt      *time.Time

	RequestedAt time.Time
}

// Member is the slice of the member directory the allocator needs.
// Account CRUD lives elsewhere.
type Member struct {
	ID           string
	FirstName    string
	LastName     string
	Scope        string
	JoinedAt     time.Time
	Capabilities []string
}

// MemberHistory is the scoring input for queue priority.
type MemberHistory struct {
	YearsActive         int
	CompletedLast90Days int
	DeclinedLast30Days  int
}

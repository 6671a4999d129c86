/*
Package tracker provides the play-record domain for Blood on the Clocktower games.

PURPOSE:
  Scripts (rule sets), roles (characters grouped by team), games (play
  sessions on a script with a winning alignment) and the association rows that
  say which roles were used in a game or appear on a script.

KEY CONCEPTS IN THIS FILE (types.go):
  - Script, Role, Game: the three owned entities
  - Association: one owner (game or script) linked to one role
  - Team / Alignment: role grouping and game outcome, distinct enums
  - Date: calendar date without time of day

OWNERSHIP:
  Associations reference their owner and role by id only. There is no object
  graph between owners and association rows; nested role lists are produced
  at query time (see AssociationRepository.RolesOf).

SEE ALSO:
  - store.go: Repository interfaces
  - reconcile.go: Association reconciliation
  - errors.go: Domain error taxonomy
*/
package tracker

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// =============================================================================
// ENUMS
// =============================================================================

// Team is the grouping a role belongs to.
type Team string

const (
	TeamDemon     Team = "DEMON"
	TeamMinion    Team = "MINION"
	TeamOutsider  Team = "OUTSIDER"
	TeamTownsfolk Team = "TOWNSFOLK"
)

// Teams lists every team in display order.
var Teams = []Team{TeamDemon, TeamMinion, TeamOutsider, TeamTownsfolk}

func (t Team) Valid() bool {
	switch t {
	case TeamDemon, TeamMinion, TeamOutsider, TeamTownsfolk:
		return true
	}
	return false
}

// Alignment is the side a team plays for. Demons and minions are evil.
func (t Team) Alignment() Alignment {
	if t == TeamDemon || t == TeamMinion {
		return AlignmentEvil
	}
	return AlignmentGood
}

// Alignment is the winning side of a game.
type Alignment string

const (
	AlignmentEvil Alignment = "EVIL"
	AlignmentGood Alignment = "GOOD"
)

func (a Alignment) Valid() bool {
	return a == AlignmentEvil || a == AlignmentGood
}

// =============================================================================
// DATE
// =============================================================================

// DateLayout is the ISO calendar date layout used on the wire and in storage.
const DateLayout = "2006-01-02"

// Date is a calendar day in UTC.
type Date struct {
	time.Time
}

// NewDate returns the given calendar day at UTC midnight.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Time.Format(DateLayout)
}

// Value stores the date as ISO text; postgres casts it into the DATE column.
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

// Scan accepts the TEXT form sqlite returns and the time.Time postgres returns.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = NewDate(v.Year(), v.Month(), v.Day())
		return nil
	case string:
		return d.scanText(v)
	case []byte:
		return d.scanText(string(v))
	}
	return fmt.Errorf("cannot scan %T into Date", src)
}

func (d *Date) scanText(s string) error {
	if len(s) > len(DateLayout) {
		// sqlite may hand back a full timestamp for a DATE-affinity column
		s = s[:len(DateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// =============================================================================
// ENTITIES
// =============================================================================

// Script is a named rule set. Names are unique.
type Script struct {
	ID   int64
	Name string
}

// Role is a character. Names are unique.
type Role struct {
	ID   int64
	Name string
	Team Team
}

// Game is one recorded play session.
type Game struct {
	ID             int64
	PlayerCount    int
	Date           Date
	IsInPerson     bool
	Notes          *string
	WinningTeam    Alignment
	ScriptID       int64
	DrunkSawRoleID *int64
}

// Association links one owner (a game or a script) to one role.
type Association struct {
	ID      int64
	OwnerID int64
	RoleID  int64
}

// OwnerKind names which table an association belongs to.
type OwnerKind string

const (
	OwnerGame   OwnerKind = "game"
	OwnerScript OwnerKind = "script"
)

/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Wire names are
  camelCase. The entity types in package tracker (Script, Role, Game,
  Association) carry no JSON tags and always go through a DTO here; the
  report types tracker.Stats and tracker.ImportSummary are tagged and
  written as-is.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Scripts:  ScriptDTO, ScriptRequest
  Roles:    RoleDTO, RoleRequest, RoleNames (reconcile body)
  Games:    GameDTO, GameRequest
  Links:    LinkDTO, LinkRequest
  Data:     DumpDTO, LoadRequest
  Lists:    ListResponse

VALIDATION:
  Request fields are pointers so a missing field can be told apart from a
  zero value. Each Request has a toDomain method that collects every
  problem into one *tracker.ValidationError, keyed by wire field name.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/holocron/tracker/tracker"
)

// Validation messages, worded like the frontend expects.
const (
	msgMissing      = "Missing data for required field."
	msgInvalidInput = "Invalid input type."
	msgInvalidDate  = "Not a valid date."
	msgInvalidEnum  = "Must be one of: %s."
)

// ListResponse wraps collections: {"result": [...]}.
type ListResponse[T any] struct {
	Result []T `json:"result"`
}

// ErrorResponse is the body of 500 responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// =============================================================================
// ROLES
// =============================================================================

// RoleDTO represents a role in API responses.
type RoleDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Team string `json:"team"`
}

func toRoleDTO(r tracker.Role) RoleDTO {
	return RoleDTO{ID: r.ID, Name: r.Name, Team: string(r.Team)}
}

func toRoleDTOs(roles []tracker.Role) []RoleDTO {
	dtos := make([]RoleDTO, len(roles))
	for i, r := range roles {
		dtos[i] = toRoleDTO(r)
	}
	return dtos
}

// RoleRequest is the create/update body for a role.
type RoleRequest struct {
	ID   *int64  `json:"id"`
	Name *string `json:"name"`
	Team *string `json:"team"`
}

func (req RoleRequest) toDomain() (tracker.Role, error) {
	var verr tracker.ValidationError
	role := req.collect("", true, &verr)
	return role, verr.Err()
}

// collect validates into verr with field names prefixed by prefix. Team may
// be omitted when requireTeam is false.
func (req RoleRequest) collect(prefix string, requireTeam bool, verr *tracker.ValidationError) tracker.Role {
	var role tracker.Role
	if req.ID != nil {
		role.ID = *req.ID
	}
	if req.Name == nil {
		verr.Add(prefix+"name", msgMissing)
	} else {
		role.Name = *req.Name
	}
	switch {
	case req.Team == nil && requireTeam:
		verr.Add(prefix+"team", msgMissing)
	case req.Team != nil && !tracker.Team(*req.Team).Valid():
		verr.Add(prefix+"team", fmt.Sprintf(msgInvalidEnum, "DEMON, MINION, OUTSIDER, TOWNSFOLK"))
	case req.Team != nil:
		role.Team = tracker.Team(*req.Team)
	}
	return role
}

// RoleNames is the reconcile body. Each element is either a role object
// ({"name": "Imp"}) or a bare name ("Imp").
type RoleNames []string

func (n *RoleNames) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		// null is not an empty list: only [] clears an owner's roles
		return invalidSchema()
	}

	var verr tracker.ValidationError
	names := make([]string, 0, len(raw))
	for i, elem := range raw {
		prefix := fmt.Sprintf("%d.", i)
		if bytes.HasPrefix(bytes.TrimSpace(elem), []byte(`"`)) {
			var name string
			if err := json.Unmarshal(elem, &name); err != nil {
				verr.Add(prefix+"name", msgInvalidInput)
				continue
			}
			names = append(names, name)
			continue
		}
		var req RoleRequest
		if err := json.Unmarshal(elem, &req); err != nil {
			verr.Add(prefix+"_schema", msgInvalidInput)
			continue
		}
		role := req.collect(prefix, false, &verr)
		names = append(names, role.Name)
	}
	if err := verr.Err(); err != nil {
		return err
	}
	*n = names
	return nil
}

func invalidSchema() *tracker.ValidationError {
	return &tracker.ValidationError{Fields: map[string][]string{"_schema": {msgInvalidInput}}}
}

// =============================================================================
// SCRIPTS
// =============================================================================

// ScriptDTO represents a script and its linked roles.
type ScriptDTO struct {
	ID    int64     `json:"id"`
	Name  string    `json:"name"`
	Roles []RoleDTO `json:"roles"`
}

func toScriptDTO(s tracker.Script, roles []tracker.Role) ScriptDTO {
	return ScriptDTO{ID: s.ID, Name: s.Name, Roles: toRoleDTOs(roles)}
}

// ScriptRequest is the create/update body for a script. Roles is read only
// by /api/load.
type ScriptRequest struct {
	ID    *int64        `json:"id"`
	Name  *string       `json:"name"`
	Roles []RoleRequest `json:"roles,omitempty"`
}

func (req ScriptRequest) toDomain() (tracker.Script, error) {
	var verr tracker.ValidationError
	s := req.collect("", &verr)
	return s, verr.Err()
}

func (req ScriptRequest) collect(prefix string, verr *tracker.ValidationError) tracker.Script {
	var s tracker.Script
	if req.ID != nil {
		s.ID = *req.ID
	}
	if req.Name == nil {
		verr.Add(prefix+"name", msgMissing)
	} else {
		s.Name = *req.Name
	}
	return s
}

// =============================================================================
// GAMES
// =============================================================================

// GameDTO represents a game and its linked roles.
type GameDTO struct {
	ID             int64     `json:"id"`
	PlayerCount    int       `json:"playerCount"`
	Date           string    `json:"date"`
	IsInPerson     bool      `json:"isInPerson"`
	Notes          *string   `json:"notes"`
	WinningTeam    string    `json:"winningTeam"`
	ScriptID       int64     `json:"scriptId"`
	DrunkSawRoleID *int64    `json:"drunkSawRoleId"`
	Roles          []RoleDTO `json:"roles"`
}

func toGameDTO(g tracker.Game, roles []tracker.Role) GameDTO {
	return GameDTO{
		ID:             g.ID,
		PlayerCount:    g.PlayerCount,
		Date:           g.Date.String(),
		IsInPerson:     g.IsInPerson,
		Notes:          g.Notes,
		WinningTeam:    string(g.WinningTeam),
		ScriptID:       g.ScriptID,
		DrunkSawRoleID: g.DrunkSawRoleID,
		Roles:          toRoleDTOs(roles),
	}
}

// GameRequest is the create/update body for a game. Roles is read only by
// /api/load.
type GameRequest struct {
	ID             *int64        `json:"id"`
	PlayerCount    *int          `json:"playerCount"`
	Date           *string       `json:"date"`
	IsInPerson     *bool         `json:"isInPerson"`
	Notes          *string       `json:"notes"`
	WinningTeam    *string       `json:"winningTeam"`
	ScriptID       *int64        `json:"scriptId"`
	DrunkSawRoleID *int64        `json:"drunkSawRoleId"`
	Roles          []RoleRequest `json:"roles,omitempty"`
}

func (req GameRequest) toDomain() (tracker.Game, error) {
	var verr tracker.ValidationError
	g := req.collect("", &verr)
	return g, verr.Err()
}

func (req GameRequest) collect(prefix string, verr *tracker.ValidationError) tracker.Game {
	g := tracker.Game{Notes: req.Notes, DrunkSawRoleID: req.DrunkSawRoleID}
	if req.ID != nil {
		g.ID = *req.ID
	}

	if req.PlayerCount == nil {
		verr.Add(prefix+"playerCount", msgMissing)
	} else {
		g.PlayerCount = *req.PlayerCount
	}

	if req.Date == nil {
		verr.Add(prefix+"date", msgMissing)
	} else if d, err := tracker.ParseDate(*req.Date); err != nil {
		verr.Add(prefix+"date", msgInvalidDate)
	} else {
		g.Date = d
	}

	if req.IsInPerson == nil {
		verr.Add(prefix+"isInPerson", msgMissing)
	} else {
		g.IsInPerson = *req.IsInPerson
	}

	switch {
	case req.WinningTeam == nil:
		verr.Add(prefix+"winningTeam", msgMissing)
	case !tracker.Alignment(*req.WinningTeam).Valid():
		verr.Add(prefix+"winningTeam", fmt.Sprintf(msgInvalidEnum, "EVIL, GOOD"))
	default:
		g.WinningTeam = tracker.Alignment(*req.WinningTeam)
	}

	if req.ScriptID == nil {
		verr.Add(prefix+"scriptId", msgMissing)
	} else {
		g.ScriptID = *req.ScriptID
	}
	return g
}

// =============================================================================
// LINKS - Raw association rows
// =============================================================================

// LinkDTO is one association row. Exactly one of GameID and ScriptID is set.
type LinkDTO struct {
	ID       int64  `json:"id"`
	GameID   *int64 `json:"gameId,omitempty"`
	ScriptID *int64 `json:"scriptId,omitempty"`
	RoleID   int64  `json:"roleId"`
}

func toLinkDTO(kind tracker.OwnerKind, a tracker.Association) LinkDTO {
	dto := LinkDTO{ID: a.ID, RoleID: a.RoleID}
	owner := a.OwnerID
	if kind == tracker.OwnerScript {
		dto.ScriptID = &owner
	} else {
		dto.GameID = &owner
	}
	return dto
}

// LinkRequest is the body of the raw link endpoints. The owner field
// matching the route (gameId or scriptId) is required.
type LinkRequest struct {
	ID       *int64 `json:"id"`
	GameID   *int64 `json:"gameId"`
	ScriptID *int64 `json:"scriptId"`
	RoleID   *int64 `json:"roleId"`
}

func (req LinkRequest) toDomain(kind tracker.OwnerKind) (tracker.Association, error) {
	var verr tracker.ValidationError
	a := req.collect("", kind, &verr)
	return a, verr.Err()
}

func (req LinkRequest) collect(prefix string, kind tracker.OwnerKind, verr *tracker.ValidationError) tracker.Association {
	var a tracker.Association
	if req.ID != nil {
		a.ID = *req.ID
	}
	owner, field := req.GameID, "gameId"
	if kind == tracker.OwnerScript {
		owner, field = req.ScriptID, "scriptId"
	}
	if owner == nil {
		verr.Add(prefix+field, msgMissing)
	} else {
		a.OwnerID = *owner
	}
	if req.RoleID == nil {
		verr.Add(prefix+"roleId", msgMissing)
	} else {
		a.RoleID = *req.RoleID
	}
	return a
}

// =============================================================================
// DUMP / LOAD
// =============================================================================

// DumpDTO is the whole dataset in response shape.
type DumpDTO struct {
	Games   []GameDTO   `json:"games"`
	Roles   []RoleDTO   `json:"roles"`
	Scripts []ScriptDTO `json:"scripts"`
}

func toDumpDTO(snap tracker.Snapshot) DumpDTO {
	dump := DumpDTO{
		Games:   make([]GameDTO, len(snap.Games)),
		Roles:   toRoleDTOs(snap.Roles),
		Scripts: make([]ScriptDTO, len(snap.Scripts)),
	}
	for i, g := range snap.Games {
		dump.Games[i] = toGameDTO(g.Game, g.Roles)
	}
	for i, s := range snap.Scripts {
		dump.Scripts[i] = toScriptDTO(s.Script, s.Roles)
	}
	return dump
}

// LoadRequest is a DumpDTO sent back. Nested roles need an id or a name.
type LoadRequest struct {
	Games   []GameRequest   `json:"games"`
	Roles   []RoleRequest   `json:"roles"`
	Scripts []ScriptRequest `json:"scripts"`
}

func (req LoadRequest) toDomain() (tracker.Snapshot, error) {
	var verr tracker.ValidationError
	var snap tracker.Snapshot

	for i, r := range req.Roles {
		snap.Roles = append(snap.Roles, r.collect(fmt.Sprintf("roles.%d.", i), true, &verr))
	}
	for i, s := range req.Scripts {
		prefix := fmt.Sprintf("scripts.%d.", i)
		snap.Scripts = append(snap.Scripts, tracker.ScriptRecord{
			Script: s.collect(prefix, &verr),
			Roles:  nestedRoles(prefix, s.Roles, &verr),
		})
	}
	for i, g := range req.Games {
		prefix := fmt.Sprintf("games.%d.", i)
		snap.Games = append(snap.Games, tracker.GameRecord{
			Game:  g.collect(prefix, &verr),
			Roles: nestedRoles(prefix, g.Roles, &verr),
		})
	}
	return snap, verr.Err()
}

func nestedRoles(prefix string, reqs []RoleRequest, verr *tracker.ValidationError) []tracker.Role {
	roles := make([]tracker.Role, 0, len(reqs))
	for i, r := range reqs {
		var role tracker.Role
		if r.ID != nil {
			role.ID = *r.ID
		}
		if r.Name != nil {
			role.Name = *r.Name
		}
		if r.ID == nil && r.Name == nil {
			verr.Add(fmt.Sprintf("%sroles.%d.id", prefix, i), msgMissing)
		}
		roles = append(roles, role)
	}
	return roles
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

package sqlstore

import (
	"errors"
	"log/slog"

	"github.com/holocron/tracker/tracker"
)

// violationKind is the constraint category of a failed statement.
type violationKind int

const (
	violationNone violationKind = iota
	violationUnique
	violationForeignKey
	violationCheck
)

type violation struct {
	kind   violationKind
	column string // best effort; "" when the engine does not say
}

// op is the repository operation that failed; messages differ per op.
type op int

const (
	opCreate op = iota
	opBulk
	opUpdate
	opDelete
)

// rules names the field blamed for each violation kind of one table.
type rules struct {
	// unique is used when the engine does not report the column.
	unique string
	// foreignKey is blamed for FK failures on insert/update. Empty means
	// the table has no outgoing keys.
	foreignKey string
}

// translate maps a failed write to the domain taxonomy. Anything that is not
// a recognised constraint violation is logged in full and hidden behind the
// generic "unknown" integrity error.
func translate(log *slog.Logger, d dialect, r rules, o op, err error) error {
	if err == nil {
		return nil
	}
	var fe *tracker.FieldError
	if errors.As(err, &fe) {
		return err
	}

	v := d.classify(err)
	switch {
	case v.kind == violationUnique:
		field := v.column
		if field == "" {
			field = r.unique
		}
		if o == opBulk {
			return tracker.Conflict(field, tracker.MsgDuplicateDetected, err)
		}
		return tracker.Conflict(field, tracker.MsgAlreadyInUse, err)

	case v.kind == violationForeignKey && o == opDelete:
		return tracker.Integrity("id", tracker.MsgStillReferenced, err)

	case v.kind == violationForeignKey && r.foreignKey != "":
		return tracker.Integrity(r.foreignKey, tracker.MsgNotFound, err)
	}

	log.Error("unexpected store error", "error", err)
	return tracker.UnknownIntegrity(err)
}

package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// ObjectID references a ledger object as "space.type.instance".
//
// Ids with space 0 are provisional: "0.0.N" points at operation N of the
// proposal that carries the reference and has no meaning outside it.
type ObjectID string

// ObjectKind is the "space.type" prefix shared by all objects of one type.
type ObjectKind string

const (
	KindAccount            ObjectKind = "1.2"
	KindAsset              ObjectKind = "1.3"
	KindWitness            ObjectKind = "1.6"
	KindProposal           ObjectKind = "1.10"
	KindSport              ObjectKind = "1.20"
	KindEventGroup         ObjectKind = "1.21"
	KindEvent              ObjectKind = "1.22"
	KindRules              ObjectKind = "1.23"
	KindBettingMarketGroup ObjectKind = "1.24"
	KindBettingMarket      ObjectKind = "1.25"
)

// NewObjectID builds an id from its three components.
func NewObjectID(space, typ, instance int) ObjectID {
	return ObjectID(fmt.Sprintf("%d.%d.%d", space, typ, instance))
}

// ProvisionalID returns the placeholder id for the operation at index
// within a proposal bundle.
func ProvisionalID(index int) ObjectID {
	return NewObjectID(0, 0, index)
}

// ParseObjectID validates s and returns it as an ObjectID.
func ParseObjectID(s string) (ObjectID, error) {
	id := ObjectID(s)
	if _, _, _, ok := id.parts(); !ok {
		return "", fmt.Errorf("invalid object id %q: want space.type.instance", s)
	}
	return id, nil
}

func (id ObjectID) parts() (space, typ, instance int, ok bool) {
	fields := strings.Split(string(id), ".")
	if len(fields) != 3 {
		return 0, 0, 0, false
	}
	var nums [3]int
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 {
			return 0, 0, 0, false
		}
		nums[i] = n
	}
	return nums[0], nums[1], nums[2], true
}

// IsValid reports whether id has exactly three non-negative integer parts.
func (id ObjectID) IsValid() bool {
	_, _, _, ok := id.parts()
	return ok
}

// IsResolved reports whether id is a fully assigned ledger id.
func (id ObjectID) IsResolved() bool {
	space, _, _, ok := id.parts()
	return ok && space != 0
}

// IsProvisional reports whether id is a space-0 placeholder.
func (id ObjectID) IsProvisional() bool {
	space, _, _, ok := id.parts()
	return ok && space == 0
}

// Instance returns the instance component, or -1 for an invalid id.
func (id ObjectID) Instance() int {
	_, _, instance, ok := id.parts()
	if !ok {
		return -1
	}
	return instance
}

// Kind returns the "space.type" prefix of a valid id.
func (id ObjectID) Kind() ObjectKind {
	space, typ, _, ok := id.parts()
	if !ok {
		return ""
	}
	return ObjectKind(fmt.Sprintf("%d.%d", space, typ))
}

func (id ObjectID) String() string { return string(id) }

// ID returns the id of the instance-th object of this kind.
func (k ObjectKind) ID(instance int) ObjectID {
	return ObjectID(fmt.Sprintf("%s.%d", k, instance))
}

// ParentField names the create-operation field that references the parent
// object. Kinds without a ledger parent return "".
func (k ObjectKind) ParentField() string {
	switch k {
	case KindEventGroup:
		return "sport_id"
	case KindEvent:
		return "event_group_id"
	case KindBettingMarketGroup:
		return "event_id"
	case KindBettingMarket:
		return "group_id"
	default:
		return ""
	}
}

var namedKinds = []ObjectKind{
	KindAccount, KindAsset, KindWitness, KindProposal,
	KindSport, KindEventGroup, KindEvent, KindRules,
	KindBettingMarketGroup, KindBettingMarket,
}

// ParseObjectKind returns the kind whose Name is name.
func ParseObjectKind(name string) (ObjectKind, bool) {
	for _, k := range namedKinds {
		if k.Name() == name {
			return k, true
		}
	}
	return "", false
}

// Name returns a readable kind name used in logs and CLI output.
func (k ObjectKind) Name() string {
	switch k {
	case KindAccount:
		return "account"
	case KindAsset:
		return "asset"
	case KindWitness:
		return "witness"
	case KindProposal:
		return "proposal"
	case KindSport:
		return "sport"
	case KindEventGroup:
		return "event_group"
	case KindEvent:
		return "event"
	case KindRules:
		return "rules"
	case KindBettingMarketGroup:
		return "betting_market_group"
	case KindBettingMarket:
		return "betting_market"
	default:
		return string(k)
	}
}

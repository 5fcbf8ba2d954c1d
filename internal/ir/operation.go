package ir

import (
	"encoding/json"
	"fmt"
	"time"
)

// OpType is the numeric operation code used on the ledger wire.
type OpType int

const (
	OpProposalCreate            OpType = 22
	OpProposalUpdate            OpType = 23
	OpSportCreate               OpType = 47
	OpSportUpdate               OpType = 48
	OpEventGroupCreate          OpType = 49
	OpEventGroupUpdate          OpType = 50
	OpEventCreate               OpType = 51
	OpEventUpdate               OpType = 52
	OpBettingMarketRulesCreate  OpType = 53
	OpBettingMarketRulesUpdate  OpType = 54
	OpBettingMarketGroupCreate  OpType = 55
	OpBettingMarketCreate       OpType = 56
	OpBettingMarketGroupResolve OpType = 58
	OpBettingMarketGroupUpdate  OpType = 73
	OpBettingMarketUpdate       OpType = 74
	OpEventUpdateStatus         OpType = 75
)

// OpRole classifies what an operation does to the object graph.
type OpRole int

const (
	RoleUnknown OpRole = iota
	RoleProposal
	RoleApproval
	RoleCreate
	RoleUpdate
	RoleResolve
	RoleStatus
)

// OpInfo describes one operation code.
type OpInfo struct {
	Name string
	Role OpRole

	// Kind is the object kind created or modified.
	Kind ObjectKind

	// Target names the field that references the modified object for
	// update, resolve and status operations.
	Target string
}

var opTable = map[OpType]OpInfo{
	OpProposalCreate:            {Name: "proposal_create", Role: RoleProposal, Kind: KindProposal},
	OpProposalUpdate:            {Name: "proposal_update", Role: RoleApproval, Kind: KindProposal, Target: "proposal"},
	OpSportCreate:               {Name: "sport_create", Role: RoleCreate, Kind: KindSport},
	OpSportUpdate:               {Name: "sport_update", Role: RoleUpdate, Kind: KindSport, Target: "sport_id"},
	OpEventGroupCreate:          {Name: "event_group_create", Role: RoleCreate, Kind: KindEventGroup},
	OpEventGroupUpdate:          {Name: "event_group_update", Role: RoleUpdate, Kind: KindEventGroup, Target: "event_group_id"},
	OpEventCreate:               {Name: "event_create", Role: RoleCreate, Kind: KindEvent},
	OpEventUpdate:               {Name: "event_update", Role: RoleUpdate, Kind: KindEvent, Target: "event_id"},
	OpBettingMarketRulesCreate:  {Name: "betting_market_rules_create", Role: RoleCreate, Kind: KindRules},
	OpBettingMarketRulesUpdate:  {Name: "betting_market_rules_update", Role: RoleUpdate, Kind: KindRules, Target: "betting_market_rules_id"},
	OpBettingMarketGroupCreate:  {Name: "betting_market_group_create", Role: RoleCreate, Kind: KindBettingMarketGroup},
	OpBettingMarketCreate:       {Name: "betting_market_create", Role: RoleCreate, Kind: KindBettingMarket},
	OpBettingMarketGroupResolve: {Name: "betting_market_group_resolve", Role: RoleResolve, Kind: KindBettingMarketGroup, Target: "betting_market_group_id"},
	OpBettingMarketGroupUpdate:  {Name: "betting_market_group_update", Role: RoleUpdate, Kind: KindBettingMarketGroup, Target: "betting_market_group_id"},
	OpBettingMarketUpdate:       {Name: "betting_market_update", Role: RoleUpdate, Kind: KindBettingMarket, Target: "betting_market_id"},
	OpEventUpdateStatus:         {Name: "event_update_status", Role: RoleStatus, Kind: KindEvent, Target: "event_id"},
}

// Info returns the table entry for t.
func (t OpType) Info() (OpInfo, bool) {
	info, ok := opTable[t]
	return info, ok
}

func (t OpType) String() string {
	if info, ok := opTable[t]; ok {
		return info.Name
	}
	return fmt.Sprintf("op_%d", int(t))
}

// ParseOpType returns the operation code named name.
func ParseOpType(name string) (OpType, bool) {
	for t, info := range opTable {
		if info.Name == name {
			return t, true
		}
	}
	return 0, false
}

// Operation is one ledger operation: (type code, field map).
type Operation struct {
	Type   OpType
	Fields Fields
}

// NewOperation returns an operation with a copy of fields.
func NewOperation(t OpType, fields Fields) Operation {
	return Operation{Type: t, Fields: fields.Clone()}
}

// MarshalJSON encodes the 2-tuple wire form [code, {fields}].
func (o Operation) MarshalJSON() ([]byte, error) {
	fields := o.Fields
	if fields == nil {
		fields = Fields{}
	}
	return json.Marshal([2]any{int(o.Type), fields})
}

// UnmarshalJSON decodes the 2-tuple wire form.
func (o *Operation) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("operation: %w", err)
	}
	if len(raw) != 2 {
		return fmt.Errorf("operation: want [code, fields], got %d elements", len(raw))
	}
	var code int
	if err := json.Unmarshal(raw[0], &code); err != nil {
		return fmt.Errorf("operation code: %w", err)
	}
	var fields Fields
	if err := json.Unmarshal(raw[1], &fields); err != nil {
		return fmt.Errorf("operation fields: %w", err)
	}
	o.Type = OpType(code)
	o.Fields = fields
	return nil
}

// TimeLayout is the ledger timestamp format (UTC, no zone suffix).
const TimeLayout = "2006-01-02T15:04:05"

// FormatTime renders t in the ledger timestamp format.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a ledger timestamp. RFC 3339 input is accepted too.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(TimeLayout, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid ledger time %q", s)
	}
	return t.UTC(), nil
}

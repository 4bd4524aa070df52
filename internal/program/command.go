package program

import "github.com/google/uuid"

// CommandKind names one of the interpreter's command types.
type CommandKind string

const (
	CommandEnable         CommandKind = "enable"
	CommandInitialCharge  CommandKind = "initial_charge"
	CommandSet            CommandKind = "set"
	CommandChange          CommandKind = "change"
	CommandEquals          CommandKind = "equals"
	CommandRetire          CommandKind = "retire"
	CommandRecharge        CommandKind = "recharge"
	CommandRecover         CommandKind = "recover"
	CommandCap             CommandKind = "cap"
	CommandFloor           CommandKind = "floor"
	CommandReplace         CommandKind = "replace"
	CommandAssume          CommandKind = "assume"
	CommandDefine          CommandKind = "define"
	CommandGet             CommandKind = "get"
)

// Stage names a recycling lifecycle stage a command targets.
type Stage string

const (
	StageEol      Stage = "eol"
	StageRecharge Stage = "recharge"
)

// AssumeMode is the carry-over policy set by an `assume` command.
type AssumeMode string

const (
	AssumeNo           AssumeMode = "no"
	AssumeOnlyRecharge AssumeMode = "only_recharge"
	AssumeContinued    AssumeMode = "continued"
)

// YearMatcher selects which simulation years a command applies to. Nil
// bounds mean open; Beginning/Onwards are sentinel shorthands from the
// source grammar, resolved to concrete bounds by the caller if present.
type YearMatcher struct {
	Min       *int `json:"min,omitempty"`
	Max       *int `json:"max,omitempty"`
	Beginning bool `json:"beginning,omitempty"`
	Onwards   bool `json:"onwards,omitempty"`
}

// Matches reports whether year falls within the matcher's bounds.
func (m YearMatcher) Matches(year int) bool {
	if m.Min != nil && year < *m.Min {
		return false
	}
	if m.Max != nil && year > *m.Max {
		return false
	}
	return true
}

// Command is one node of a substance's command list.
type Command struct {
	ID uuid.UUID `json:"id"`

	Kind CommandKind `json:"kind"`

	// Stream names the target stream for value-bearing commands (set,
	// change, cap, floor, retire's implicit population target, and so on).
	Stream string `json:"stream,omitempty"`

	// Value is the command's primary value expression, when it has one.
	Value Value `json:"value,omitempty"`

	// SecondValue carries `equals`'s optional second value (energy
	// intensity alongside GHG intensity).
	SecondValue Value `json:"secondValue,omitempty"`

	Year YearMatcher `json:"year,omitempty"`

	// Displacing names the cross-substance displacement target for cap and
	// floor. Replace names its destination in TargetSubstance instead.
	Displacing string `json:"displacing,omitempty"`

	// WithStage names the recycling stage a recover command targets.
	WithStage Stage `json:"withStage,omitempty"`

	// WithInduction carries an explicit induction-rate override for a
	// recover command.
	WithInduction Value `json:"withInduction,omitempty"`
	HasInduction  bool  `json:"hasInduction,omitempty"`

	// WithReplacement marks a retire command that feeds retired units back
	// into newEquipment demand to hold population constant.
	WithReplacement bool `json:"withReplacement,omitempty"`

	// Name carries the bound name for define/get (the variable name for
	// define, or an optional alias target for get).
	Name string `json:"name,omitempty"`

	// TargetSubstance carries replace's destination substance name.
	TargetSubstance string `json:"targetSubstance,omitempty"`

	// AssumeMode carries the carry-over policy for an assume command.
	Mode AssumeMode `json:"mode,omitempty"`

	// Units, when non-empty, is the unit a get command converts the value
	// it reads into.
	Units string `json:"units,omitempty"`
}

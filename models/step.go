package models

import (
	"fmt"
	"strings"
)

// Mode says which flow a user's conversation is currently in
type Mode string

const (
	ModeCollecting Mode = "collecting" // initial collection pass
	ModeEditing    Mode = "editing"    // single-field edit entered from done
	ModeDone       Mode = "done"
	ModeReporting  Mode = "reporting" // issue-report sub-flow
)

// Field names the piece of data a step is waiting for
type Field string

const (
	FieldNone         Field = ""
	FieldRealName     Field = "realname"
	FieldNickName     Field = "nickname"
	FieldAge          Field = "age"
	FieldBirthday     Field = "birthday"
	FieldDepartment   Field = "department"
	FieldReportTitle  Field = "title"
	FieldReportDetail Field = "detail"
	FieldReportPhoto  Field = "photo"
)

// ProfileFields lists the profile fields in collection order
var ProfileFields = []Field{
	FieldRealName,
	FieldNickName,
	FieldAge,
	FieldBirthday,
	FieldDepartment,
}

// IsProfileField reports whether f is collected during registration
func IsProfileField(f Field) bool {
	for _, pf := range ProfileFields {
		if pf == f {
			return true
		}
	}
	return false
}

// Step is the position of a conversation in the registration state machine
type Step struct {
	Mode  Mode  `bson:"mode" json:"mode"`
	Field Field `bson:"field,omitempty" json:"field,omitempty"`
}

var (
	StepDone         = Step{Mode: ModeDone}
	StepReportTitle  = Step{Mode: ModeReporting, Field: FieldReportTitle}
	StepReportDetail = Step{Mode: ModeReporting, Field: FieldReportDetail}
	StepReportPhoto  = Step{Mode: ModeReporting, Field: FieldReportPhoto}
)

// Collect returns the collection-pass step asking for f
func Collect(f Field) Step { return Step{Mode: ModeCollecting, Field: f} }

// Edit returns the single-field edit step for f
func Edit(f Field) Step { return Step{Mode: ModeEditing, Field: f} }

// Valid reports whether s belongs to the closed step set
func (s Step) Valid() bool {
	switch s.Mode {
	case ModeDone:
		return s.Field == FieldNone
	case ModeCollecting, ModeEditing:
		return IsProfileField(s.Field)
	case ModeReporting:
		return s.Field == FieldReportTitle || s.Field == FieldReportDetail || s.Field == FieldReportPhoto
	}
	return false
}

// String renders the step in its wire name, e.g. "ask_age" or "ask_age_only"
func (s Step) String() string {
	switch s.Mode {
	case ModeDone:
		return "done"
	case ModeCollecting:
		return "ask_" + string(s.Field)
	case ModeEditing:
		return "ask_" + string(s.Field) + "_only"
	case ModeReporting:
		return "report_" + string(s.Field)
	}
	return "invalid"
}

// ParseStep is the inverse of Step.String
func ParseStep(name string) (Step, error) {
	var s Step
	switch {
	case name == "done":
		s = StepDone
	case strings.HasPrefix(name, "report_"):
		s = Step{Mode: ModeReporting, Field: Field(strings.TrimPrefix(name, "report_"))}
	case strings.HasPrefix(name, "ask_") && strings.HasSuffix(name, "_only"):
		s = Edit(Field(strings.TrimSuffix(strings.TrimPrefix(name, "ask_"), "_only")))
	case strings.HasPrefix(name, "ask_"):
		s = Collect(Field(strings.TrimPrefix(name, "ask_")))
	}
	if !s.Valid() {
		return Step{}, fmt.Errorf("unknown step %q", name)
	}
	return s, nil
}

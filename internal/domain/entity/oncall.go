package entity

import "time"

// OnCall is one current on-call assignment.
type OnCall struct {
	User             string
	Email            string
	Schedule         string
	EscalationPolicy string
	Level            uint
	Start            time.Time
	End              time.Time // zero when the assignment is open ended
}

package models

import (
	"fmt"
	"math"
)

const (
	// ProgressLen is the number of tracked subjects.
	ProgressLen = 5
	// MaxScore is the upper bound of a single subject score.
	MaxScore = 100
)

// Subjects lists the tracked subjects in progress-vector order.
var Subjects = [ProgressLen]string{"Math", "Science", "History", "English", "Games"}

// User represents the authoritative user record owned by the credential store.
type User struct {
	Username     string    `json:"username" bson:"username" mapstructure:"username" db:"username" dynamodbav:"username"`
	PasswordHash string    `json:"passwordHash" bson:"password_hash" mapstructure:"password_hash" db:"password_hash" dynamodbav:"passwordHash"`
	Streak       int       `json:"streak" bson:"streak" mapstructure:"streak" db:"streak" dynamodbav:"streak"`
	Progress     []float64 `json:"progress" bson:"progress" mapstructure:"progress" db:"progress" dynamodbav:"progress"`
}

// NewUser creates a zero-valued record for a freshly registered user.
// Note: No validation is performed here.
func NewUser(username string, hashedPassword string) *User {
	return &User{
		Username:     username,
		PasswordHash: hashedPassword,
		Streak:       0,
		Progress:     []float64{},
	}
}

// Clone returns a deep copy so callers never share the progress slice.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Progress = CopyProgress(u.Progress)
	return &c
}

// View strips the credential from the record.
func (u *User) View() UserView {
	return UserView{
		Username: u.Username,
		Streak:   u.Streak,
		Progress: CopyProgress(u.Progress),
	}
}

// UserView is the public part of a user record as sent over the wire.
type UserView struct {
	Username string    `json:"username"`
	Streak   int       `json:"streak"`
	Progress []float64 `json:"progress"`
}

// CopyProgress copies a progress vector, turning nil into an empty vector.
func CopyProgress(p []float64) []float64 {
	out := make([]float64, len(p))
	copy(out, p)
	return out
}

// ValidateProgress checks that p holds exactly one finite score in [0,100] per subject.
func ValidateProgress(p []float64) error {
	if len(p) != ProgressLen {
		return fmt.Errorf("expected %d scores, got %d", ProgressLen, len(p))
	}
	for i, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > MaxScore {
			return fmt.Errorf("score for %s out of range: %v", Subjects[i], v)
		}
	}
	return nil
}

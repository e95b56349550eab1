package models

import (
	"math"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	type args struct {
		username string
		password string
	}
	tests := []struct {
		name string
		args args
		want *User
	}{
		{
			name: "Create new user with valid username and password hash",
			args: args{
				username: "testuser",
				password: "hashed",
			},
			want: &User{
				Username:     "testuser",
				PasswordHash: "hashed",
				Streak:       0,
				Progress:     []float64{},
			},
		},
		{
			name: "Create new user with empty username and password",
			args: args{
				username: "",
				password: "",
			},
			want: &User{
				Username:     "",
				PasswordHash: "",
				Progress:     []float64{},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewUser(tt.args.username, tt.args.password); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NewUser() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUserCloneDoesNotShareProgress(t *testing.T) {
	u := &User{Username: "alice", Progress: []float64{1, 2, 3, 4, 5}}
	c := u.Clone()
	c.Progress[0] = 99

	assert.Equal(t, 1.0, u.Progress[0])
	assert.Nil(t, (*User)(nil).Clone())
}

func TestUserViewOmitsHash(t *testing.T) {
	u := &User{Username: "alice", PasswordHash: "secret-hash", Streak: 3}
	v := u.View()

	assert.Equal(t, UserView{Username: "alice", Streak: 3, Progress: []float64{}}, v)
}

func TestValidateProgress(t *testing.T) {
	tests := []struct {
		name     string
		progress []float64
		wantErr  bool
	}{
		{name: "valid", progress: []float64{0, 25, 50, 75, 100}},
		{name: "too short", progress: []float64{1, 2, 3}, wantErr: true},
		{name: "too long", progress: []float64{1, 2, 3, 4, 5, 6}, wantErr: true},
		{name: "empty", progress: []float64{}, wantErr: true},
		{name: "negative score", progress: []float64{-1, 2, 3, 4, 5}, wantErr: true},
		{name: "score above max", progress: []float64{1, 2, 3, 4, 101}, wantErr: true},
		{name: "NaN", progress: []float64{1, math.NaN(), 3, 4, 5}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateProgress(tt.progress)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateProgress() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSnapshotValid(t *testing.T) {
	tests := []struct {
		name string
		snap *SessionSnapshot
		want bool
	}{
		{name: "nil", snap: nil, want: false},
		{name: "no username", snap: &SessionSnapshot{Streak: 1}, want: false},
		{name: "negative streak", snap: &SessionSnapshot{Username: "alice", Streak: -1}, want: false},
		{name: "fresh user", snap: &SessionSnapshot{Username: "alice", Progress: []float64{}}, want: true},
		{name: "full progress", snap: &SessionSnapshot{Username: "alice", Progress: []float64{1, 2, 3, 4, 5}}, want: true},
		{name: "bad progress", snap: &SessionSnapshot{Username: "alice", Progress: []float64{1, 2}}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.snap.Valid())
		})
	}
}

func TestNewSnapshotFromView(t *testing.T) {
	v := UserView{Username: "alice", Streak: 4, Progress: []float64{1, 2, 3, 4, 5}}
	s := NewSnapshotFromView(v)

	require.NotNil(t, s)
	assert.False(t, s.Cached)
	assert.True(t, s.ProgressConfirmed)
	v.Progress[0] = 50
	assert.Equal(t, 1.0, s.Progress[0])
}

func TestMutationValid(t *testing.T) {
	assert.True(t, Mutation{Kind: MutationStreak, Username: "alice", Streak: 2}.Valid())
	assert.False(t, Mutation{Kind: MutationStreak, Username: "", Streak: 2}.Valid())
	assert.True(t, Mutation{Kind: MutationProgress, Username: "alice", Progress: []float64{1, 2, 3, 4, 5}}.Valid())
	assert.False(t, Mutation{Kind: MutationProgress, Username: "alice", Progress: []float64{1}}.Valid())
	assert.False(t, Mutation{Kind: "bogus", Username: "alice"}.Valid())
}

func TestBadges(t *testing.T) {
	tests := []struct {
		streak int
		want   []bool
	}{
		{streak: 0, want: []bool{false, false, false}},
		{streak: 5, want: []bool{true, false, false}},
		{streak: 12, want: []bool{true, true, false}},
		{streak: 20, want: []bool{true, true, true}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Badges(tt.streak), "streak %d", tt.streak)
	}
}

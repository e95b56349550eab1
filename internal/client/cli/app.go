// Package cli implements the EduQuest command line client.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/haguru/eduquest/internal/client/reconcile"
	apperrors "github.com/haguru/eduquest/internal/errors"
	"github.com/haguru/eduquest/internal/models"
)

const Usage = "usage: client [-config path] <register|login|status|play|progress|sync|logout> [args]"

var ErrUsage = errors.New(Usage)

// Session is the part of the client the commands drive.
type Session interface {
	Register(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) (*reconcile.Result, error)
	Logout() error
	CompleteGame(ctx context.Context) (*models.SessionSnapshot, error)
	UpdateProgress(ctx context.Context, progress []float64) (*models.SessionSnapshot, error)
	Sync(ctx context.Context) (*models.SessionSnapshot, error)
	Current() (*models.SessionSnapshot, bool)
	Badges() []bool
	Pending() []models.Mutation
}

type App struct {
	session Session
	in      *bufio.Reader
	out     io.Writer
}

func NewApp(session Session, in io.Reader, out io.Writer) *App {
	return &App{session: session, in: bufio.NewReader(in), out: out}
}

// Run executes one command.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return ErrUsage
	}
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "register":
		return a.register(ctx, rest)
	case "login":
		return a.login(ctx, rest)
	case "status":
		return a.status()
	case "play":
		return a.play(ctx)
	case "progress":
		return a.progress(ctx, rest)
	case "sync":
		return a.sync(ctx)
	case "logout":
		if err := a.session.Logout(); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Logged out")
		return nil
	default:
		return fmt.Errorf("unknown command %q: %w", cmd, ErrUsage)
	}
}

func (a *App) credentials(args []string) (string, string, error) {
	if len(args) == 0 {
		return "", "", ErrUsage
	}
	if len(args) > 1 {
		return args[0], args[1], nil
	}
	password, err := getPassword(a.in, a.out)
	if err != nil {
		return "", "", err
	}
	return args[0], password, nil
}

func (a *App) register(ctx context.Context, args []string) error {
	username, password, err := a.credentials(args)
	if err != nil {
		return err
	}
	if err := a.session.Register(ctx, username, password); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Registered %s\n", username)
	return nil
}

func (a *App) login(ctx context.Context, args []string) error {
	username, password, err := a.credentials(args)
	if err != nil {
		return err
	}
	res, err := a.session.Login(ctx, username, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged in as %s (%s)\n", res.Snapshot.Username, res.State)
	if res.Stale {
		fmt.Fprintln(a.out, "Server unreachable, showing cached progress")
	}
	return a.status()
}

func (a *App) status() error {
	snapshot, ok := a.session.Current()
	if !ok {
		return apperrors.ErrNoSession
	}
	a.printSnapshot(snapshot)
	return nil
}

func (a *App) play(ctx context.Context) error {
	snapshot, err := a.session.CompleteGame(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Game complete, streak is now %d\n", snapshot.Streak)
	fmt.Fprintln(a.out, "badges:", formatBadges(a.session.Badges()))
	return nil
}

func (a *App) progress(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return ErrUsage
	}
	scores := make([]float64, 0, len(args))
	for _, arg := range args {
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return fmt.Errorf("score %q: %w", arg, apperrors.ErrInvalidShape)
		}
		scores = append(scores, v)
	}
	snapshot, err := a.session.UpdateProgress(ctx, scores)
	if err != nil {
		return err
	}
	a.printSnapshot(snapshot)
	return nil
}

func (a *App) sync(ctx context.Context) error {
	snapshot, err := a.session.Sync(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Synced")
	a.printSnapshot(snapshot)
	return nil
}

func (a *App) printSnapshot(s *models.SessionSnapshot) {
	user := s.Username
	if s.Cached {
		user += " (cached)"
	}
	fmt.Fprintf(a.out, "user: %s\n", user)
	fmt.Fprintf(a.out, "streak: %d\n", s.Streak)
	fmt.Fprintf(a.out, "badges: %s\n", formatBadges(models.Badges(s.Streak)))
	fmt.Fprintf(a.out, "progress: %s\n", formatProgress(s))
	if n := len(a.session.Pending()); n > 0 {
		fmt.Fprintf(a.out, "pending: %d change(s) waiting for the server\n", n)
	}
}

func formatBadges(earned []bool) string {
	parts := make([]string, len(earned))
	for i, ok := range earned {
		mark := " "
		if ok {
			mark = "x"
		}
		parts[i] = fmt.Sprintf("[%s] %d", mark, models.BadgeThresholds[i])
	}
	return strings.Join(parts, "  ")
}

func formatProgress(s *models.SessionSnapshot) string {
	if len(s.Progress) == 0 {
		return "none yet"
	}
	parts := make([]string, len(s.Progress))
	for i, v := range s.Progress {
		parts[i] = fmt.Sprintf("%s %s", models.Subjects[i], strconv.FormatFloat(v, 'f', -1, 64))
	}
	out := strings.Join(parts, ", ")
	if !s.ProgressConfirmed {
		out += " (unconfirmed)"
	}
	return out
}

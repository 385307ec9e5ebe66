package camera

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/visora/internal/models"
	"github.com/your-org/visora/internal/observability"
)

var (
	ErrUnknownAction     = errors.New("unknown camera action")
	ErrUnknownCameraType = errors.New("unknown camera type")
)

// Command is one camera request for a session. CameraType is the target for
// "on" and must be valid there. For "off" and "switch" it is only the assumed
// current camera when nothing is stored; an unrecognized value counts as user.
type Command struct {
	SessionID  uuid.UUID
	Action     string
	CameraType string
}

// Transition is the outcome of an applied command.
type Transition struct {
	Action    models.CameraAction
	Previous  *models.CameraState
	State     models.CameraState
	Event     models.CameraEvent
	Scheduled bool // event was handed to the dispatcher
}

// Channel applies camera commands, records state and schedules broadcasts.
type Channel struct {
	store    StateStore // nil means transient, nothing is remembered
	dispatch *Dispatcher
	now      func() time.Time
}

func NewChannel(store StateStore, dispatch *Dispatcher) *Channel {
	return &Channel{
		store:    store,
		dispatch: dispatch,
		now:      time.Now,
	}
}

func ParseAction(s string) (models.CameraAction, error) {
	switch a := models.CameraAction(strings.ToLower(strings.TrimSpace(s))); a {
	case models.CameraOn, models.CameraOff, models.CameraSwitch:
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

func ParseCameraType(s string) (models.CameraType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "user", "front", "selfie":
		return models.CameraUser, nil
	case "environment", "back", "rear":
		return models.CameraEnvironment, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCameraType, s)
}

// Apply runs cmd. The state is written before the event is scheduled; the
// event is never awaited.
func (c *Channel) Apply(ctx context.Context, cmd Command) (*Transition, error) {
	action, err := ParseAction(cmd.Action)
	if err != nil {
		return nil, err
	}
	hint, err := ParseCameraType(cmd.CameraType)
	if err != nil {
		if action == models.CameraOn {
			return nil, err
		}
		slog.Debug("ignoring unrecognized camera hint", "session_id", cmd.SessionID, "action", action, "camera_type", cmd.CameraType)
		hint = models.CameraUser
	}

	var prev *models.CameraState
	if c.store != nil {
		prev, err = c.store.GetCameraState(ctx, cmd.SessionID)
		if err != nil {
			return nil, fmt.Errorf("load camera state: %w", err)
		}
	}

	current := hint
	if prev != nil && prev.CameraType != "" {
		current = prev.CameraType
	}

	next := models.CameraState{SessionID: cmd.SessionID}
	ev := models.CameraEvent{
		SessionID: cmd.SessionID,
		Action:    string(action),
	}

	switch action {
	case models.CameraOn:
		next.IsEnabled = true
		next.CameraType = hint
		ev.CameraType = hint
		ev.Message = "Camera activation requested"
	case models.CameraOff:
		next.IsEnabled = false
		next.CameraType = current
		ev.CameraType = current
		ev.Message = "Camera deactivation requested"
	case models.CameraSwitch:
		next.IsEnabled = true
		next.CameraType = current.Opposite()
		ev.CameraType = current
		ev.NewCameraType = next.CameraType
		ev.Message = fmt.Sprintf("Camera switch requested: %s -> %s", current, next.CameraType)
	}
	ev.IsEnabled = next.IsEnabled

	if c.store != nil {
		if err := c.store.UpsertCameraState(ctx, &next); err != nil {
			return nil, fmt.Errorf("save camera state: %w", err)
		}
	} else {
		next.UpdatedAt = c.now().UTC()
	}

	ev.Timestamp = c.now().UTC().Format(time.RFC3339)
	ev.EventID = uuid.NewString()[:8]

	t := &Transition{Action: action, Previous: prev, State: next, Event: ev}
	if c.dispatch != nil {
		t.Scheduled = c.dispatch.Submit(ev)
	}
	return t, nil
}

// Set applies a command and describes the outcome for the listener. It never
// returns an error; failures become apologetic or corrective text.
func (c *Channel) Set(ctx context.Context, sessionID uuid.UUID, action, cameraType string) string {
	t, err := c.Apply(ctx, Command{SessionID: sessionID, Action: action, CameraType: cameraType})
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownAction):
			observability.CameraCommands.WithLabelValues("unknown", "rejected").Inc()
			return fmt.Sprintf("Unrecognized command %q. Use on, off or switch.", action)
		case errors.Is(err, ErrUnknownCameraType):
			observability.CameraCommands.WithLabelValues(action, "rejected").Inc()
			return fmt.Sprintf("Unrecognized camera %q. Use user for the front camera or environment for the rear camera.", cameraType)
		default:
			observability.CameraCommands.WithLabelValues(action, "error").Inc()
			slog.Error("camera command failed", "session_id", sessionID, "action", action, "error", err)
			return "Sorry, something went wrong while controlling the camera. Please try again."
		}
	}

	observability.CameraCommands.WithLabelValues(string(t.Action), "ok").Inc()
	slog.Info("camera command applied",
		"session_id", sessionID, "action", t.Action,
		"camera_type", t.State.CameraType, "enabled", t.State.IsEnabled, "event_id", t.Event.EventID)

	switch t.Action {
	case models.CameraOn:
		return fmt.Sprintf("The %s is on and ready to use.", t.State.CameraType.Label())
	case models.CameraOff:
		return "The camera is off."
	default:
		return fmt.Sprintf("Switched to the %s.", t.State.CameraType.Label())
	}
}

// State returns the last known state, or nil when none is recorded or the
// channel keeps no state.
func (c *Channel) State(ctx context.Context, sessionID uuid.UUID) (*models.CameraState, error) {
	if c.store == nil {
		return nil, nil
	}
	st, err := c.store.GetCameraState(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get camera state: %w", err)
	}
	return st, nil
}

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nerrad567/media-coordinator/internal/command"
	"github.com/nerrad567/media-coordinator/internal/device"
	"github.com/nerrad567/media-coordinator/internal/inventory"
	"github.com/nerrad567/media-coordinator/internal/session"
)

// Delivery selects how device calls relate to local state changes.
type Delivery string

// Delivery modes.
const (
	DeliveryBestEffort Delivery = "best_effort"
	DeliveryConfirmed  Delivery = "confirmed"
)

// ParseDelivery maps a configuration value to a Delivery. Empty means best effort.
func ParseDelivery(s string) (Delivery, error) {
	switch Delivery(s) {
	case "", DeliveryBestEffort:
		return DeliveryBestEffort, nil
	case DeliveryConfirmed:
		return DeliveryConfirmed, nil
	}
	return "", fmt.Errorf("unknown delivery mode %q", s)
}

// Inventory resolves device identifiers.
type Inventory interface {
	ResolveTV(id string) (inventory.TV, bool)
	ResolveZone(id string) (inventory.AudioZone, bool)
	ResolveBluetoothDevice(id string) (inventory.BluetoothDevice, bool)
	Snapshot() inventory.Inventory
}

// Devices issues the outbound calls the dispatcher needs.
type Devices interface {
	StartPlayback(ctx context.Context, tv inventory.TV, sessionID, contentRef string) (device.Response, error)
	AttachSession(ctx context.Context, zone inventory.AudioZone, sessionID string, output command.AudioOutput) (device.Response, error)
	SetVolume(ctx context.Context, zone inventory.AudioZone, level float64) (device.Response, error)
}

// Logger defines the logging interface used by the Dispatcher.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger discards everything.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures a Dispatcher. Inventory, Store and Devices are required.
type Options struct {
	Inventory Inventory
	Store     *session.Store
	Devices   Devices
	Delivery  Delivery

	// LockTimeout bounds the wait for a busy session. Zero waits as long as
	// the request context allows.
	LockTimeout time.Duration

	Logger    Logger
	Observers []Observer

	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider
}

// Dispatcher runs commands against the inventory, session store and devices.
//
// Every command goes through the same steps:
//  1. Schema validation (Execute parses untrusted JSON, Dispatch re-checks)
//  2. Resolution of targetTvId, audioZoneId and bluetoothDeviceId, in that
//     order; the first unknown one fails the command
//  3. Per-action required fields
//  4. The action handler, holding the session lock for session commands
//  5. One Record to every observer, whatever the outcome
//
// Validation and resolution failures happen before any state changes. A
// device failure can happen after: in best-effort delivery a PLAY session
// is committed before the TV is called and stays committed if the call
// fails. Confirmed delivery commits only after the device acknowledges.
//
// All public methods are thread-safe.
type Dispatcher struct {
	inventory   Inventory
	store       *session.Store
	devices     Devices
	delivery    Delivery
	lockTimeout time.Duration
	logger      Logger
	tracer      trace.Tracer
	now         func() time.Time

	observersMu sync.RWMutex
	observers   []Observer
}

// New creates a Dispatcher.
//
// Parameters:
//   - opts: Inventory, Store and Devices are required. An empty Delivery
//     means best effort; a nil Logger or TracerProvider gets a default.
//
// Returns:
//   - *Dispatcher: ready for concurrent use
//   - error: if a required dependency is missing or Delivery is unknown
func New(opts Options) (*Dispatcher, error) {
	if opts.Inventory == nil || opts.Store == nil || opts.Devices == nil {
		return nil, errors.New("dispatch: inventory, store and devices are required")
	}
	delivery, err := ParseDelivery(string(opts.Delivery))
	if err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Dispatcher{
		inventory:   opts.Inventory,
		store:       opts.Store,
		devices:     opts.Devices,
		delivery:    delivery,
		lockTimeout: opts.LockTimeout,
		logger:      logger,
		observers:   append([]Observer(nil), opts.Observers...),
		tracer:      newTracer(opts.TracerProvider),
		now:         time.Now,
	}, nil
}

// Delivery returns the configured delivery mode.
func (d *Dispatcher) Delivery() Delivery {
	return d.delivery
}

// AddObserver registers o for every command that finishes after the call.
// It may be called while commands are running; a command already in
// flight may or may not reach o.
func (d *Dispatcher) AddObserver(o Observer) {
	d.observersMu.Lock()
	defer d.observersMu.Unlock()
	d.observers = append(d.observers, o)
}

// Execute parses an untrusted JSON payload and dispatches it.
//
// Errors classify with errors.Is against command.ErrMalformed,
// command.ErrInvalidCommand (as *command.ValidationError, listing every
// violation), ErrUnknownTarget, ErrMissingField, ErrNotPaired,
// session.ErrSessionNotFound, ErrSessionBusy and ErrDownstream. Message(err)
// gives the text meant for the caller.
//
// On ErrDownstream the Result may still carry a committed session.
func (d *Dispatcher) Execute(ctx context.Context, payload []byte) (Result, error) {
	start := d.now()
	cmd, err := command.Parse(payload)
	if err != nil {
		d.observe(Record{Outcome: outcomeOf(err), Err: err, At: start, Duration: d.now().Sub(start)})
		return Result{}, err
	}
	return d.dispatch(ctx, cmd, start)
}

// Dispatch runs a command built in code. The command is still checked
// against the schema rules before anything else happens.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd command.Command) (Result, error) {
	start := d.now()
	if err := cmd.Check(); err != nil {
		d.observe(Record{Action: cmd.Action, Command: &cmd, Outcome: OutcomeRejected, Err: err, At: start})
		return Result{}, err
	}
	return d.dispatch(ctx, cmd, start)
}

// dispatch runs a checked command inside a span, logs the outcome at a level
// matching it, and emits one Record. The record's session is a deep copy so
// observers cannot reach store state.
func (d *Dispatcher) dispatch(ctx context.Context, cmd command.Command, start time.Time) (Result, error) {
	ctx, span := d.tracer.Start(ctx, "dispatch "+string(cmd.Action), trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()
	span.SetAttributes(attribute.String("command.action", string(cmd.Action)))

	res, err := d.run(ctx, cmd)
	res.Action = cmd.Action

	outcome := outcomeOf(err)
	span.SetAttributes(attribute.String("command.outcome", string(outcome)))
	if res.Session != nil {
		span.SetAttributes(attribute.String("session.id", res.Session.SessionID))
	}

	switch outcome {
	case OutcomeFailed:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.logger.Error("command failed", "action", cmd.Action, "error", err)
	case OutcomeRejected:
		d.logger.Info("command rejected", "action", cmd.Action, "reason", Message(err))
	default:
		d.logger.Debug("command accepted", "action", cmd.Action)
	}

	d.observe(Record{
		Action:   cmd.Action,
		Command:  &cmd,
		Session:  res.Session.DeepCopy(),
		Outcome:  outcome,
		Err:      err,
		Duration: d.now().Sub(start),
		At:       start,
	})
	return res, err
}

// observe notifies observers outside the lock, so an observer may itself
// call AddObserver.
func (d *Dispatcher) observe(r Record) {
	d.observersMu.RLock()
	observers := d.observers
	d.observersMu.RUnlock()
	for _, o := range observers {
		o.Observe(r)
	}
}

// run resolves device references and routes the command to its handler.
// LIST_TARGETS carries no references and skips resolution.
func (d *Dispatcher) run(ctx context.Context, cmd command.Command) (Result, error) {
	if cmd.Action != command.ActionListTargets {
		if err := d.checkTargets(cmd); err != nil {
			return Result{}, err
		}
	}

	switch cmd.Action {
	case command.ActionListTargets:
		snapshot := d.inventory.Snapshot()
		return Result{Targets: &snapshot}, nil
	case command.ActionPlay:
		return d.play(ctx, cmd)
	case command.ActionStop:
		return d.transition(ctx, cmd, session.StateStopped)
	case command.ActionPause:
		return d.transition(ctx, cmd, session.StatePaused)
	case command.ActionResume:
		return d.transition(ctx, cmd, session.StatePlaying)
	case command.ActionSeek:
		return d.seek(ctx, cmd)
	case command.ActionMoveAudio:
		return d.moveAudio(ctx, cmd)
	case command.ActionSelectBluetoothDevice:
		return d.selectBluetoothDevice(cmd)
	case command.ActionSetVolume:
		return d.setVolume(ctx, cmd)
	}
	return Result{}, newError(ErrUnsupportedAction, "Unsupported command action")
}

// checkTargets resolves every referenced device; the first unknown one wins.
func (d *Dispatcher) checkTargets(cmd command.Command) error {
	for _, ref := range cmd.DeviceRefs() {
		var found bool
		switch ref.Field {
		case "targetTvId":
			_, found = d.inventory.ResolveTV(ref.ID)
		case "audioZoneId":
			_, found = d.inventory.ResolveZone(ref.ID)
		case "bluetoothDeviceId":
			_, found = d.inventory.ResolveBluetoothDevice(ref.ID)
		}
		if !found {
			return newError(ErrUnknownTarget, "Unknown %s: %s", ref.Field, ref.ID)
		}
	}
	return nil
}

// lockSession takes the session lock, bounded by the configured timeout.
func (d *Dispatcher) lockSession(ctx context.Context, id string) (func(), error) {
	if d.lockTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.lockTimeout)
		defer cancel()
	}
	unlock, err := d.store.Lock(ctx, id)
	if err != nil {
		return nil, &Error{Kind: ErrSessionBusy, Message: fmt.Sprintf("Session %s is busy: %v", id, err)}
	}
	return unlock, nil
}

// notFound maps session.ErrSessionNotFound to a dispatch error with the
// public message. Other errors pass through.
func notFound(err error) error {
	if errors.Is(err, session.ErrSessionNotFound) {
		return &Error{Kind: session.ErrSessionNotFound, Message: "Session not found"}
	}
	return err
}

// play creates a session and starts it on the TV.
//
// The session id is reserved and locked before the TV is called, so the TV
// sees the id the session will have.
//
// Delivery modes:
//   - confirmed: the session is committed only after the TV acknowledges;
//     any failure releases the reservation
//   - best-effort: the session is committed first; a failed TV call returns
//     ErrDownstream together with the committed session
func (d *Dispatcher) play(ctx context.Context, cmd command.Command) (Result, error) {
	tvID := command.Value(cmd.TargetTVID)
	contentRef := command.Value(cmd.ContentRef)
	if tvID == "" || contentRef == "" {
		return Result{}, newError(ErrMissingField, "targetTvId and contentRef are required for PLAY")
	}
	tv, _ := d.inventory.ResolveTV(tvID)

	params := session.CreateParams{
		ContentRef:  contentRef,
		TargetTVID:  tvID,
		AudioZoneID: command.Value(cmd.AudioZoneID),
	}
	if cmd.AudioRoute != nil {
		params.AudioRoute = *cmd.AudioRoute
	}
	if cmd.AudioOutput != nil {
		params.AudioOutput = *cmd.AudioOutput
	}

	reservation := d.store.Reserve(params)
	unlock, err := d.lockSession(ctx, reservation.ID())
	if err != nil {
		_ = reservation.Release()
		return Result{}, err
	}
	defer unlock()

	if d.delivery == DeliveryConfirmed {
		resp, err := d.devices.StartPlayback(ctx, tv, reservation.ID(), contentRef)
		if err := d.confirm("TV", tv.TVID, resp, err); err != nil {
			_ = reservation.Release()
			return Result{}, err
		}
		sess, err := reservation.Commit()
		if err != nil {
			return Result{}, err
		}
		return Result{Accepted: true, Session: &sess}, nil
	}

	sess, err := reservation.Commit()
	if err != nil {
		return Result{}, err
	}
	resp, err := d.devices.StartPlayback(ctx, tv, sess.SessionID, contentRef)
	if err != nil {
		return Result{Session: &sess}, downstream("TV", tv.TVID, err)
	}
	d.warnIfRefused("TV", tv.TVID, resp)
	return Result{Accepted: true, Session: &sess}, nil
}

// transition moves a session to state. No device is called.
func (d *Dispatcher) transition(ctx context.Context, cmd command.Command, state session.State) (Result, error) {
	id := command.Value(cmd.SessionID)
	if id == "" {
		return Result{}, newError(ErrMissingField, "sessionId is required for %s", cmd.Action)
	}

	unlock, err := d.lockSession(ctx, id)
	if err != nil {
		return Result{}, err
	}
	defer unlock()

	sess, err := d.store.Update(id, session.SetState(state))
	if err != nil {
		return Result{}, notFound(err)
	}
	return Result{Accepted: true, Session: &sess}, nil
}

// seek records the requested position on the session.
func (d *Dispatcher) seek(ctx context.Context, cmd command.Command) (Result, error) {
	id := command.Value(cmd.SessionID)
	if id == "" {
		return Result{}, newError(ErrMissingField, "sessionId is required for SEEK")
	}
	if cmd.SeekSeconds == nil {
		return Result{}, newError(ErrMissingField, "seekSeconds is required for SEEK")
	}

	unlock, err := d.lockSession(ctx, id)
	if err != nil {
		return Result{}, err
	}
	defer unlock()

	sess, err := d.store.Update(id, session.Patch{LastSeekSeconds: cmd.SeekSeconds})
	if err != nil {
		return Result{}, notFound(err)
	}
	return Result{Accepted: true, Session: &sess}, nil
}

// moveAudio attaches the session to a zone and routes its audio there.
// audioOutput defaults to wired. In confirmed mode the session must exist
// before the zone is called and the zone must acknowledge; the store is
// updated only after the zone call.
func (d *Dispatcher) moveAudio(ctx context.Context, cmd command.Command) (Result, error) {
	id := command.Value(cmd.SessionID)
	zoneID := command.Value(cmd.AudioZoneID)
	if id == "" || zoneID == "" {
		return Result{}, newError(ErrMissingField, "sessionId and audioZoneId are required for MOVE_AUDIO")
	}
	zone, _ := d.inventory.ResolveZone(zoneID)

	output := command.AudioOutputWired
	if cmd.AudioOutput != nil {
		output = *cmd.AudioOutput
	}

	unlock, err := d.lockSession(ctx, id)
	if err != nil {
		return Result{}, err
	}
	defer unlock()

	if d.delivery == DeliveryConfirmed {
		if _, err := d.store.Get(id); err != nil {
			return Result{}, notFound(err)
		}
	}

	resp, err := d.devices.AttachSession(ctx, zone, id, output)
	if d.delivery == DeliveryConfirmed {
		if err := d.confirm("zone", zone.AudioZoneID, resp, err); err != nil {
			return Result{}, err
		}
	} else {
		if err != nil {
			return Result{}, downstream("zone", zone.AudioZoneID, err)
		}
		d.warnIfRefused("zone", zone.AudioZoneID, resp)
	}

	route := command.AudioRouteZone
	sess, err := d.store.Update(id, session.Patch{
		AudioRoute:  &route,
		AudioZoneID: &zoneID,
		AudioOutput: &output,
	})
	if err != nil {
		return Result{}, notFound(err)
	}
	return Result{Accepted: true, Session: &sess}, nil
}

// selectBluetoothDevice checks the pairing and echoes the selection. It
// changes no state and calls no device.
func (d *Dispatcher) selectBluetoothDevice(cmd command.Command) (Result, error) {
	zoneID := command.Value(cmd.AudioZoneID)
	btID := command.Value(cmd.BluetoothDeviceID)
	if zoneID == "" || btID == "" {
		return Result{}, newError(ErrMissingField, "audioZoneId and bluetoothDeviceId are required")
	}

	bt, _ := d.inventory.ResolveBluetoothDevice(btID)
	if bt.PairedWithZoneID != zoneID {
		return Result{}, newError(ErrNotPaired, "Bluetooth device is not paired with the requested zone")
	}
	return Result{
		Accepted: true,
		Selected: &Selection{AudioZoneID: zoneID, BluetoothDeviceID: btID},
	}, nil
}

// setVolume forwards the level to the zone. No session is involved.
func (d *Dispatcher) setVolume(ctx context.Context, cmd command.Command) (Result, error) {
	zoneID := command.Value(cmd.AudioZoneID)
	if zoneID == "" || cmd.VolumeLevel == nil {
		return Result{}, newError(ErrMissingField, "audioZoneId and volumeLevel are required for SET_VOLUME")
	}
	zone, _ := d.inventory.ResolveZone(zoneID)

	resp, err := d.devices.SetVolume(ctx, zone, *cmd.VolumeLevel)
	if d.delivery == DeliveryConfirmed {
		if err := d.confirm("zone", zone.AudioZoneID, resp, err); err != nil {
			return Result{}, err
		}
	} else {
		if err != nil {
			return Result{}, downstream("zone", zone.AudioZoneID, err)
		}
		d.warnIfRefused("zone", zone.AudioZoneID, resp)
	}
	return Result{Accepted: true}, nil
}

// downstream wraps a transport failure as ErrDownstream.
func downstream(kind, id string, err error) error {
	return &Error{Kind: ErrDownstream, Message: fmt.Sprintf("Call to %s %s failed: %v", kind, id, err)}
}

// confirm turns a device reply into an error unless it was acknowledged.
func (d *Dispatcher) confirm(kind, id string, resp device.Response, err error) error {
	if err != nil {
		return downstream(kind, id, err)
	}
	if !resp.Acknowledged() {
		reason := resp.Reason()
		if reason == "" {
			reason = fmt.Sprintf("status %d", resp.Status)
		}
		return &Error{Kind: ErrDownstream, Message: fmt.Sprintf("%s %s did not accept the request: %s", kind, id, reason)}
	}
	return nil
}

// warnIfRefused logs a device reply that was not acknowledged. Best-effort
// mode still treats such a command as accepted.
func (d *Dispatcher) warnIfRefused(kind, id string, resp device.Response) {
	if !resp.Acknowledged() {
		d.logger.Warn("device did not acknowledge command", "device_kind", kind, "device_id", id,
			"status", resp.Status, "reason", resp.Reason())
	}
}

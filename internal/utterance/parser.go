package utterance

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/nerrad567/media-coordinator/internal/command"
	"github.com/nerrad567/media-coordinator/internal/inventory"
)

// Fallback targets used when the inventory is empty.
const (
	FallbackTVID        = "tv_living_room"
	FallbackAudioZoneID = "zone_living_room"
	DefaultContentRef   = "demo-video"
)

// Clarification questions.
const (
	askWhatToPlay   = "¿Qué quieres reproducir y en qué TV?"
	askStopSession  = "¿Qué sesión quieres detener? Dame el sessionId."
	askPauseSession = "¿Qué sesión quieres pausar? Dame el sessionId."
	askResume       = "¿Qué sesión quieres continuar? Dame el sessionId."
	askSeekSession  = "¿En qué sesión quieres saltar? Dame el sessionId."
	askSeekPosition = "¿A qué segundo quieres saltar?"
	askVolume       = "¿Qué volumen (0 a 100) y en qué zona?"
	askMoveSession  = "Necesito el sessionId para mover el audio."
	askBTSession    = "Necesito el sessionId para mover el audio por Bluetooth."
	notUnderstood   = "No entendí el comando. ¿Quieres reproducir, pausar, parar, mover audio o cambiar volumen?"
)

var (
	sessionToken = regexp.MustCompile(`\bsess_[0-9a-z_]+`)
	number       = regexp.MustCompile(`\d{1,3}`)
	seekNumber   = regexp.MustCompile(`\d+(\.\d+)?`)
)

// Result is the outcome of parsing one utterance.
//
// Command is nil when nothing was recognised. A non-empty Clarification
// means Command, if present, is incomplete and should not be sent yet.
type Result struct {
	Command       *command.Command `json:"command"`
	Clarification string           `json:"clarificationQuestion,omitempty"`
}

// Ready reports whether Command can be submitted as is.
func (r Result) Ready() bool {
	return r.Command != nil && r.Clarification == ""
}

// Defaults are the targets assumed when the utterance does not name one.
type Defaults struct {
	TVID        string
	AudioZoneID string
}

// DefaultsFrom picks the first TV and audio zone of inv, falling back to
// the living room devices.
func DefaultsFrom(inv inventory.Inventory) Defaults {
	d := Defaults{TVID: FallbackTVID, AudioZoneID: FallbackAudioZoneID}
	if len(inv.TVs) > 0 && inv.TVs[0].TVID != "" {
		d.TVID = inv.TVs[0].TVID
	}
	if len(inv.AudioZones) > 0 && inv.AudioZones[0].AudioZoneID != "" {
		d.AudioZoneID = inv.AudioZones[0].AudioZoneID
	}
	return d
}

// Parse interprets text. Matching is case-insensitive and the first rule
// that applies wins.
func Parse(text string, d Defaults) Result {
	if d.TVID == "" {
		d.TVID = FallbackTVID
	}
	if d.AudioZoneID == "" {
		d.AudioZoneID = FallbackAudioZoneID
	}

	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return Result{Clarification: askWhatToPlay}
	}

	sessionID := sessionToken.FindString(normalized)
	// Digits inside a session id are not volume levels or positions.
	rest := strings.TrimSpace(sessionToken.ReplaceAllString(normalized, " "))

	switch {
	case (strings.Contains(rest, "lista") || strings.Contains(rest, "list")) && strings.Contains(rest, "tv"):
		return Result{Command: &command.Command{Action: command.ActionListTargets}}

	case strings.HasPrefix(rest, "para") || strings.Contains(rest, "stop"):
		return sessionCommand(command.ActionStop, sessionID, askStopSession)

	case strings.Contains(rest, "pausa") || strings.Contains(rest, "pause"):
		return sessionCommand(command.ActionPause, sessionID, askPauseSession)

	case strings.Contains(rest, "continua") || strings.Contains(rest, "continúa") || strings.Contains(rest, "resume"):
		return sessionCommand(command.ActionResume, sessionID, askResume)

	case strings.Contains(rest, "salta") || strings.Contains(rest, "seek"):
		return seek(rest, sessionID)

	case strings.Contains(rest, "volumen") || strings.Contains(rest, "volume"):
		m := number.FindString(rest)
		if m == "" {
			return Result{Clarification: askVolume}
		}
		level, _ := strconv.ParseFloat(m, 64)
		return Result{Command: &command.Command{
			Action:      command.ActionSetVolume,
			AudioZoneID: command.String(d.AudioZoneID),
			VolumeLevel: command.Number(level),
		}}

	case strings.Contains(rest, "mueve el audio") || strings.Contains(rest, "move audio"):
		if strings.Contains(rest, "bluetooth") {
			return moveAudio(sessionID, d.AudioZoneID, command.AudioOutputBluetooth, askBTSession)
		}
		return moveAudio(sessionID, d.AudioZoneID, command.AudioOutputWired, askMoveSession)

	case strings.Contains(rest, "bluetooth"):
		return moveAudio(sessionID, d.AudioZoneID, command.AudioOutputBluetooth, askBTSession)

	case strings.Contains(rest, "pon") || strings.Contains(rest, "play"):
		route := command.AudioRouteTV
		return Result{Command: &command.Command{
			Action:     command.ActionPlay,
			TargetTVID: command.String(d.TVID),
			ContentRef: command.String(DefaultContentRef),
			AudioRoute: &route,
		}}
	}

	return Result{Clarification: notUnderstood}
}

// sessionCommand builds a command for the last session, or asks for one
// when there is none. The command is returned either way.
func sessionCommand(action command.Action, sessionID, ask string) Result {
	cmd := &command.Command{Action: action}
	if sessionID == "" {
		return Result{Command: cmd, Clarification: ask}
	}
	cmd.SessionID = command.String(sessionID)
	return Result{Command: cmd}
}

// seek reads the first number in text as the target position in seconds.
func seek(text, sessionID string) Result {
	res := sessionCommand(command.ActionSeek, sessionID, askSeekSession)
	m := seekNumber.FindString(text)
	if m == "" {
		if res.Clarification == "" {
			res.Clarification = askSeekPosition
		}
		return res
	}
	seconds, _ := strconv.ParseFloat(m, 64)
	res.Command.SeekSeconds = command.Number(seconds)
	return res
}

func moveAudio(sessionID, zoneID string, output command.AudioOutput, ask string) Result {
	res := sessionCommand(command.ActionMoveAudio, sessionID, ask)
	res.Command.AudioZoneID = command.String(zoneID)
	res.Command.AudioOutput = &output
	return res
}

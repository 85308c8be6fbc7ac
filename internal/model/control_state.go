package model

// ControlState says what the player is currently doing.
// Only ControlField enables ambient navigation cues.
type ControlState int32

const (
	// ControlField - free movement in the world
	ControlField ControlState = iota
	// ControlBattle - battle panel active
	ControlBattle
	// ControlEvent - cutscene or scripted event
	ControlEvent
	// ControlMenu - some menu panel open
	ControlMenu
	// ControlDeathRecovery - death/restart step
	ControlDeathRecovery
	// ControlPaused - global pause
	ControlPaused
)

// String returns human-readable state name
func (s ControlState) String() string {
	switch s {
	case ControlField:
		return "FIELD"
	case ControlBattle:
		return "BATTLE"
	case ControlEvent:
		return "EVENT"
	case ControlMenu:
		return "MENU"
	case ControlDeathRecovery:
		return "DEATH_RECOVERY"
	case ControlPaused:
		return "PAUSED"
	default:
		return "UNKNOWN"
	}
}

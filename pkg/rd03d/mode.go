package rd03d

import (
	"fmt"
	"strings"
)

// OperationMode is the sensor's operation mode. ModeConfig is a flag
// combined with one of the streaming modes.
type OperationMode byte

// Operation modes.
const (
	ModeDebug  OperationMode = 0x00
	ModeReport OperationMode = 0x01
	ModeRun    OperationMode = 0x02
	ModeConfig OperationMode = 0x80
)

// InConfig tells if the configuration mode flag is set.
func (m OperationMode) InConfig() bool {
	return m&ModeConfig != 0
}

// Base returns the mode without the configuration flag.
func (m OperationMode) Base() OperationMode {
	return m &^ ModeConfig
}

// String implements fmt.Stringer.
func (m OperationMode) String() string {
	var name string
	switch m.Base() {
	case ModeDebug:
		name = "debug"
	case ModeReport:
		name = "report"
	case ModeRun:
		name = "run"
	default:
		name = fmt.Sprintf("mode(%#02x)", byte(m.Base()))
	}
	if m.InConfig() {
		return "config|" + name
	}
	return name
}

// Command returns the command switching to m.
func (m OperationMode) Command() (CommandKind, error) {
	switch m {
	case ModeDebug:
		return CmdSetDebugMode, nil
	case ModeReport:
		return CmdSetReportMode, nil
	case ModeRun:
		return CmdSetRunMode, nil
	}
	return 0, fmt.Errorf("%w: %s is not a streaming mode", ErrMode, m)
}

// ParseOperationMode parses "debug", "report" or "run".
func ParseOperationMode(s string) (OperationMode, error) {
	switch strings.ToLower(s) {
	case "debug":
		return ModeDebug, nil
	case "report":
		return ModeReport, nil
	case "run":
		return ModeRun, nil
	}
	return 0, fmt.Errorf("unknown operation mode %q", s)
}

// DetectionMode selects single or multi target tracking.
type DetectionMode byte

// Detection modes.
const (
	DetectionSingle DetectionMode = iota
	DetectionMulti
)

// String implements fmt.Stringer.
func (m DetectionMode) String() string {
	switch m {
	case DetectionSingle:
		return "single"
	case DetectionMulti:
		return "multi"
	}
	return fmt.Sprintf("detection(%d)", byte(m))
}

// Command returns the command switching to m.
func (m DetectionMode) Command() (CommandKind, error) {
	switch m {
	case DetectionSingle:
		return CmdSetSingleTargetMode, nil
	case DetectionMulti:
		return CmdSetMultiTargetMode, nil
	}
	return 0, fmt.Errorf("unknown detection mode %d", byte(m))
}

// ParseDetectionMode parses "single" or "multi".
func ParseDetectionMode(s string) (DetectionMode, error) {
	switch strings.ToLower(s) {
	case "single":
		return DetectionSingle, nil
	case "multi":
		return DetectionMulti, nil
	}
	return 0, fmt.Errorf("unknown detection mode %q", s)
}

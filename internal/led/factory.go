package led

import (
	"os"
	"strings"

	"github.com/smazurov/magnifier/internal/logging"
)

const deviceTreeModelPath = "/proc/device-tree/model"

// boardLEDs maps a device-tree model fragment to the board's LED types.
var boardLEDs = []struct {
	model string
	leds  map[string]string
}{
	{"NanoPC-T6", map[string]string{"user": "usr_led", "system": "sys_led"}},
	{"Orange Pi", map[string]string{"blue": "blue_led", "green": "green_led"}},
	{"Raspberry Pi", map[string]string{"act": "ACT", "pwr": "PWR"}},
}

// New creates a new LED controller based on board detection.
// Falls back to a no-op controller if LEDs are not available.
func New(logger logging.Logger) Controller {
	return newForModel(detectBoard(), logger)
}

func newForModel(boardModel string, logger logging.Logger) Controller {
	for _, board := range boardLEDs {
		if strings.Contains(boardModel, board.model) {
			if logger != nil {
				logger.Info("Detected board, using sysfs LED controller", "board_model", boardModel)
			}
			return newSysfs(board.leds)
		}
	}

	if logger != nil {
		logger.Info("No LED support detected, using no-op controller", "board_model", boardModel)
	}
	return newNoop(logger)
}

// detectBoard reads the device tree model to identify the board.
func detectBoard() string {
	data, err := os.ReadFile(deviceTreeModelPath)
	if err != nil {
		return "unknown"
	}

	// Device tree model contains null bytes, trim them
	return strings.TrimRight(string(data), "\x00")
}

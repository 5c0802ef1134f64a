package config

import (
	"os"
	"path/filepath"
)

const configTemplate = `# investd configuration

[engine]
# Hard timeout for a single analyst agent evaluation. A timed-out agent is
# treated as a soft failure (hold, confidence 0).
agent_timeout = "5s"
# Escalate the run to Failed after this many consecutive dates with
# unavailable market data.
max_consecutive_data_failures = 3
# Size of the price window handed to the analyst agents, in calendar days.
lookback_days = 180

[risk]
# Cap a single trade at this fraction of portfolio value.
max_trade_fraction = 0.5
# Cap the total stock position at this fraction of portfolio value.
max_position_fraction = 1.0
# Tie-break order for the weighted vote; earlier agents win ties.
tie_priority = ["fundamental", "valuation", "technical", "sentiment"]

[store]
# "memory" keeps results in process; "sqlite" persists them.
driver = "memory"
# path = "~/.config/investd/investd.db"

[logging]
level = "info"
console = true
file = false
`

// writeTemplate creates the config directory and a commented template
// config.toml if none exists yet.
func writeTemplate(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	return os.WriteFile(path, []byte(configTemplate), 0644)
}

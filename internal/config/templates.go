package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "party":
		return partyTemplate, nil
	case "overrides":
		return overridesTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const partyTemplate = `name = "partyline"
addr = ":8000"
host = "localhost"
invite_path = "/__invite__/"
cors_origins = ["http://localhost:3000"]

[[apps]]
id = "root"
prefix = ""
party = true

[[apps]]
id = "one"
prefix = "/one"
party = true

[[apps]]
id = "two"
prefix = "/two"
party = true

[[apps]]
id = "three"
prefix = "/three"
party = false
`

const overridesTemplate = `# partyctl overrides; unset keys keep the party config values
# party_config_path = "party.toml"
# addr = ":8000"
# host = "localhost"
# log_level = "info"
# metrics = true
# metrics_path = "/metrics"
# invite_timeout = "5s"
`

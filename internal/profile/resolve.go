package profile

import (
	"os"

	"github.com/matheus3301/botchat/internal/config"
)

const DefaultName = "main"

// Resolve picks the active profile: the flag, then $BOTCHAT_PROFILE, then
// default_profile from config.toml, then "main".
func Resolve(flagOverride string) string {
	if flagOverride != "" {
		return flagOverride
	}
	if name := os.Getenv(config.EnvPrefix + "PROFILE"); name != "" {
		return name
	}
	cfg, err := config.Load(ConfigPath())
	if err == nil && cfg.DefaultProfile != "" {
		return cfg.DefaultProfile
	}
	return DefaultName
}

package config

import "github.com/caarlos0/env/v11"

// Env holds settings read only from the environment, mostly for debugging.
type Env struct {
	Debug     bool   `env:"NARRATOR_DEBUG"`
	LogFile   string `env:"NARRATOR_LOG_FILE"`
	NoAudio   bool   `env:"NARRATOR_NO_AUDIO"`
	Mouse     bool   `env:"NARRATOR_MOUSE"      envDefault:"true"`
	AltScreen bool   `env:"NARRATOR_ALT_SCREEN" envDefault:"true"`
}

// ParseEnv reads Env from the process environment.
func ParseEnv() (Env, error) {
	return env.ParseAs[Env]()
}

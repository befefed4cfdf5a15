package config

// ConfigDiff describes what changed between two configs. Hot-reloadable
// fields (log level, chat and quiz tuning) are tracked individually; gateway
// and server changes are collapsed into a restart-required flag.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// ChatChanged is true when chat.turn_timeout or chat.max_links changed.
	ChatChanged bool

	// QuizChanged is true when quiz.history_cap or quiz.recommend_count
	// changed.
	QuizChanged bool

	// RestartRequired is true when a field that cannot be applied to a
	// running server changed (listen address, TLS, gateway, catalog path).
	RestartRequired bool
}

// Empty reports whether nothing of interest changed.
func (d ConfigDiff) Empty() bool {
	return !d.LogLevelChanged && !d.ChatChanged && !d.QuizChanged && !d.RestartRequired
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Chat != new.Chat {
		d.ChatChanged = true
	}
	if old.Quiz != new.Quiz {
		d.QuizChanged = true
	}

	if old.Server.ListenAddr != new.Server.ListenAddr ||
		!tlsEqual(old.Server.TLS, new.Server.TLS) ||
		old.Gateway != new.Gateway ||
		old.Catalog != new.Catalog {
		d.RestartRequired = true
	}

	return d
}

func tlsEqual(a, b *TLSConfig) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

package config

// Keys read by the container and its built-in components.
const (
	PathHome   = "path.home"
	PathData   = "path.data"
	PathTemp   = "path.temp"
	PathShared = "path.shared"

	DatabaseURL      = "database.url"
	DatabaseUsername = "database.username"
	DatabasePassword = "database.password"
	DatabaseDriver   = "database.driver"

	ServerID     = "server.id"
	ProcessIndex = "process.index"

	AppEnv   = "app.env"
	LogLevel = "log.level"
	HTTPAddr = "http.addr"
)

// DefaultRequiredKeys must be present and non-blank before a hierarchy may
// start: deployment paths, persistence endpoint and its credentials.
var DefaultRequiredKeys = []string{
	PathHome,
	PathData,
	PathTemp,
	DatabaseURL,
	DatabaseUsername,
	DatabasePassword,
}

// Defaults apply when nothing else sets a key.
var Defaults = map[string]string{
	DatabaseDriver: "postgres",
	ProcessIndex:   "2",
	AppEnv:         "local",
	LogLevel:       "info",
	HTTPAddr:       ":9090",
}

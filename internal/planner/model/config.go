package model

// ================ Config ================
type PlannerConfig struct {
	SessionTTL      string `envconfig:"PLANNER_SESSION_TTL" default:"1h"`
	TurnBudget      string `envconfig:"PLANNER_TURN_BUDGET" default:"90s"`
	TaskMaxAttempts int    `envconfig:"PLANNER_TASK_MAX_ATTEMPTS" default:"3"`
	RoleMaxAttempts int    `envconfig:"PLANNER_ROLE_MAX_ATTEMPTS" default:"2"`
	HistoryMaxTurns int    `envconfig:"PLANNER_HISTORY_MAX_TURNS" default:"10"`
}

type GeneratorModelConfig struct {
	Model       string  `envconfig:"GENERATOR_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"GENERATOR_MAX_TOKENS" default:"4000"`
	Temperature float32 `envconfig:"GENERATOR_TEMPERATURE" default:"0.7"`
	Timeout     int     `envconfig:"GENERATOR_TIMEOUT" default:"60"`
}

type ValidatorModelConfig struct {
	Model       string  `envconfig:"VALIDATOR_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `envconfig:"VALIDATOR_MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"VALIDATOR_TEMPERATURE" default:"0.1"`
	Timeout     int     `envconfig:"VALIDATOR_TIMEOUT" default:"30"`
}

type ToolsConfig struct {
	TrainTimeout    int `envconfig:"TOOL_TRAIN_TIMEOUT" default:"30"`
	HotelTimeout    int `envconfig:"TOOL_HOTEL_TIMEOUT" default:"300"`
	RouteTimeout    int `envconfig:"TOOL_ROUTE_TIMEOUT" default:"30"`
	StationCacheTTL int `envconfig:"TOOL_STATION_CACHE_TTL" default:"3600"`
}

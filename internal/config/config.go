// Package config defines the static configuration surface for the
// meeting intelligence core: gateway, credential pool, worker backend,
// context engine thresholds, and orchestration retry ceilings.
package config

import "time"

// Config is the root configuration object, loaded from YAML with
// environment overrides layered on top (see Load).
type Config struct {
	Gateway       GatewayConfig       `yaml:"gateway"`
	Credential    CredentialConfig    `yaml:"credential"`
	Worker        WorkerConfig        `yaml:"worker"`
	Context       ContextConfig       `yaml:"context"`
	Orchestration OrchestrationConfig `yaml:"orchestration"`
	Postgres      PostgresConfig      `yaml:"postgres"`
	Redis         RedisConfig         `yaml:"redis"`
	LLM           LLMConfig           `yaml:"llm"`
	Backend       BackendConfig       `yaml:"backend"`
}

// GatewayConfig configures the WebSocket signaling hub and this core's
// other HTTP surfaces, each on its own port so the signaling hub's
// public listener never shares a mux with the internal control plane.
type GatewayConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AgentPort      int      `yaml:"agent_port"`
	ControlPort    int      `yaml:"control_port"`
	BackendPort    int      `yaml:"backend_port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	RateLimitRPM   int      `yaml:"rate_limit_rpm"`
}

// CredentialConfig configures the STT credential pool (§4.1).
type CredentialConfig struct {
	TotalKeys          int           `yaml:"total_keys"`
	MaxMeetingsPerKey  int           `yaml:"max_meetings_per_key"`
	TTL                time.Duration `yaml:"ttl"`
	Backend            string        `yaml:"backend"` // "local" | "redis"
}

// WorkerConfig selects and configures the WorkerManager backend (§4.2).
type WorkerConfig struct {
	Backend             string        `yaml:"backend"` // "docker" | "kubernetes"
	Image               string        `yaml:"image"`
	Namespace           string        `yaml:"namespace"`
	ImagePullSecret     string        `yaml:"image_pull_secret"`
	TTLAfterCompletion  time.Duration `yaml:"ttl_after_completion"`
	BackendAPIURL       string        `yaml:"backend_api_url"`
	TTSServerURL        string        `yaml:"tts_server_url"`
	ControlAPIURL       string        `yaml:"control_api_url"`
	AgentServiceURL     string        `yaml:"agent_service_url"`
	LiveKitURL          string        `yaml:"livekit_url"`
	LiveKitAPIKey       string        `yaml:"livekit_api_key"`
	LiveKitAPISecret    string        `yaml:"livekit_api_secret"`
	AgentEnabled        bool          `yaml:"agent_enabled"`
	AgentWakeWord       string        `yaml:"agent_wake_word"`
	LogLevel            string        `yaml:"log_level"`
}

// ContextConfig configures the ContextManager's buffers and update
// cadence (§4.5 data model + algorithm thresholds).
type ContextConfig struct {
	L0MaxTurns                      int           `yaml:"l0_max_turns"`
	L0TopicBufferMaxTurns            int           `yaml:"l0_topic_buffer_max_turns"`
	TopicQuickCheckEnabled           bool          `yaml:"topic_quick_check_enabled"`
	TopicCheckIntervalTurns          int           `yaml:"topic_check_interval_turns"`
	L1UpdateTurnThreshold            int           `yaml:"l1_update_turn_threshold"`
	L1UpdateTokenBudget              int           `yaml:"l1_update_token_budget"`
	L1UpdateIntervalMinutes          time.Duration `yaml:"l1_update_interval_minutes"`
	L1MinNewUtterancesForTimeTrigger int           `yaml:"l1_min_new_utterances_for_time_trigger"`
	DBSyncUtteranceThreshold         int           `yaml:"db_sync_utterance_threshold"`
	DBSyncIntervalSeconds            time.Duration `yaml:"db_sync_interval_seconds"`
	SpeakerBufferMaxPerSpeaker       int           `yaml:"speaker_buffer_max_per_speaker"`
	CompositeQuery                   CompositeQueryConfig `yaml:"composite_query"`
	TopicTransitionHints             []string      `yaml:"topic_transition_hints"`
	IncludeTimestamps                bool          `yaml:"include_timestamps"`
	L1SummaryMaxTokens               int           `yaml:"l1_summary_max_tokens"`
}

// CompositeQueryConfig holds the lexical-heuristic keyword lists used
// to detect a composite query. An explicit configuration point:
// deployments tune the hints per language and domain.
type CompositeQueryConfig struct {
	AssignmentHints []string `yaml:"assignment_hints"`
	TeamHints       []string `yaml:"team_hints"`
	ReferentialHints []string `yaml:"referential_hints"`
}

// OrchestrationConfig configures retry ceilings and wake-word handling.
type OrchestrationConfig struct {
	PlannerMaxRetry      int    `yaml:"planner_max_retry"`
	EvaluatorMaxRounds   int    `yaml:"evaluator_max_rounds"`
	WakeWord             string `yaml:"wake_word"`
	TTSFailureThreshold  int    `yaml:"tts_failure_threshold"`
	CompletionGracePeriod time.Duration `yaml:"completion_grace_period"`
}

// PostgresConfig configures the persistence collaborator connection.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// RedisConfig configures the shared credential pool store.
type RedisConfig struct {
	Addr string `yaml:"addr"`
	DB   int    `yaml:"db"`
}

// LLMConfig selects the LLM provider backend used by the context engine
// and orchestration graph.
type LLMConfig struct {
	Provider string `yaml:"provider"` // "openai" | "anthropic" | "disabled"
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
}

// BackendConfig points at the out-of-scope REST collaborator used for
// transcript upload and meeting-complete notifications.
type BackendConfig struct {
	BaseURL string `yaml:"base_url"`
}

// Default returns a Config populated with the reference deployment's
// defaults.
func Default() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			AgentPort:    8081,
			ControlPort:  8082,
			BackendPort:  8083,
			RateLimitRPM: 0,
		},
		Credential: CredentialConfig{
			TotalKeys:         4,
			MaxMeetingsPerKey: 2,
			TTL:               6 * time.Hour,
			Backend:           "local",
		},
		Worker: WorkerConfig{
			Backend:            "docker",
			Image:              "ghcr.io/teamatoi/meetcore-worker:latest",
			Namespace:          "mit",
			TTLAfterCompletion: 300 * time.Second,
			ControlAPIURL:      "http://localhost:8082",
			AgentServiceURL:    "http://localhost:8081",
			AgentEnabled:       true,
			AgentWakeWord:      "부덕아",
			LogLevel:           "info",
		},
		Context: ContextConfig{
			L0MaxTurns:                       50,
			L0TopicBufferMaxTurns:            80,
			TopicQuickCheckEnabled:           true,
			TopicCheckIntervalTurns:          5,
			L1UpdateTurnThreshold:            12,
			L1UpdateTokenBudget:              3000,
			L1UpdateIntervalMinutes:          5 * time.Minute,
			L1MinNewUtterancesForTimeTrigger: 3,
			DBSyncUtteranceThreshold:         20,
			DBSyncIntervalSeconds:            30 * time.Second,
			SpeakerBufferMaxPerSpeaker:       30,
			CompositeQuery: CompositeQueryConfig{
				AssignmentHints:  []string{"맡고 있는", "담당", "책임자", "담당자", "맡은"},
				TeamHints:        []string{"팀원", "같은 팀", "팀에서", "팀의"},
				ReferentialHints: []string{"이전에 찾은", "그 담당자", "그 사람", "그 액션", "그 팀원", "그 팀", "그 결정", "찾은"},
			},
			TopicTransitionHints: []string{"다음 주제", "다른 얘기", "화제를 바꿔서", "이제 ", "그건 그렇고", "주제를 바꿔서"},
			IncludeTimestamps:    false,
			L1SummaryMaxTokens:   800,
		},
		Orchestration: OrchestrationConfig{
			PlannerMaxRetry:       3,
			EvaluatorMaxRounds:    3,
			WakeWord:              "부덕아",
			TTSFailureThreshold:   3,
			CompletionGracePeriod: 5 * time.Second,
		},
	}
}

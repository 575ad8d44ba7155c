package agent

// ================ Config ================
type ModelConfig struct {
	Model       string  `envconfig:"AGENT_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"AGENT_MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"AGENT_TEMPERATURE" default:"0.3"`
}

type TopicModelConfig struct {
	Model       string  `envconfig:"TOPIC_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `envconfig:"TOPIC_MAX_TOKENS" default:"50"`
	Temperature float32 `envconfig:"TOPIC_TEMPERATURE" default:"0.0"`
}

type AgentConfig struct {
	MaxSteps int `envconfig:"AGENT_MAX_STEPS" default:"12"`
	Tools    struct {
		MaxCalls int `envconfig:"AGENT_TOOL_MAX_CALLS" default:"10"`
	}
}

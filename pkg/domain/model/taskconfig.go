package model

// AgentConfig is a per-agent override loaded from a task configuration
// document. Empty fields fall back to run-level defaults.
type AgentConfig struct {
	SystemMessage string `yaml:"system_message"`
	Model         string `yaml:"model"`
	Provider      string `yaml:"provider"`
}

// TaskSpec holds the task-level sections of a configuration document.
type TaskSpec struct {
	Preamble string `yaml:"preamble"`
	Schema   string `yaml:"schema"`
	// Template is the default field document for character collection
	// flows; unused by the novel evaluation task family.
	Template Document `yaml:"template"`
}

// TaskConfig is a language-specific behavior descriptor. All sections are
// optional; callers supply hard-coded defaults for every field. A zero
// TaskConfig is the "nothing configured" value returned when no document
// exists or parsing fails.
type TaskConfig struct {
	Agents    map[string]AgentConfig `yaml:"agents"`
	Task      TaskSpec               `yaml:"task"`
	MaxRounds int                    `yaml:"max_rounds"`
}

// Agent returns the override section for the named agent, or a zero value.
func (c TaskConfig) Agent(name string) AgentConfig {
	if c.Agents == nil {
		return AgentConfig{}
	}
	return c.Agents[name]
}

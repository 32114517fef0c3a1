package ai

// ProviderName represents an AI provider identifier
type ProviderName string

// Provider name constants
const (
	ProviderNameTogether ProviderName = "together"
	ProviderNameOpenAI   ProviderName = "openai"
	ProviderNameGemini   ProviderName = "gemini"
)

// String returns the string representation of the provider name
func (p ProviderName) String() string {
	return string(p)
}

// IsValid checks if the provider name is supported
func (p ProviderName) IsValid() bool {
	switch p {
	case ProviderNameTogether, ProviderNameOpenAI, ProviderNameGemini:
		return true
	default:
		return false
	}
}

// Default endpoints for OpenAI-compatible providers
const (
	TogetherBaseURL = "https://api.together.xyz/v1/"
	OpenAIBaseURL   = "https://api.openai.com/v1/"
)

// Default models per provider
const (
	ModelLlama3_8BChat  = "meta-llama/Llama-3-8b-chat-hf"
	ModelLlama3_70BChat = "meta-llama/Llama-3-70b-chat-hf"
	ModelGPT4oMini      = "gpt-4o-mini"
	ModelGemini20Flash  = "gemini-2.0-flash"
)

package models

// ProviderType enumerates supported AI vendors.
type ProviderType string

const (
	ProviderTypeOpenAI   ProviderType = "openai"
	ProviderTypeGemini   ProviderType = "gemini"
	ProviderTypeGroq     ProviderType = "groq"
	ProviderTypeDeepSeek ProviderType = "deepseek"
)

// KnownProviders returns every supported provider in display order.
func KnownProviders() []ProviderType {
	return []ProviderType{
		ProviderTypeOpenAI,
		ProviderTypeGemini,
		ProviderTypeGroq,
		ProviderTypeDeepSeek,
	}
}

// String returns the string representation of the provider type
func (p ProviderType) String() string {
	return string(p)
}

// IsValid reports whether p is one of the supported providers
func (p ProviderType) IsValid() bool {
	switch p {
	case ProviderTypeOpenAI, ProviderTypeGemini, ProviderTypeGroq, ProviderTypeDeepSeek:
		return true
	default:
		return false
	}
}

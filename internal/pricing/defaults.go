package pricing

import "agent_gateway/internal/models"

// USD per million tokens.
var defaultEntries = []models.PricingEntry{
	{Provider: models.ProviderTypeOpenAI, Model: "gpt-4o-mini", DisplayName: "GPT-4o Mini", PricePerMillionUSD: 0.15},
	{Provider: models.ProviderTypeOpenAI, Model: "gpt-4o", DisplayName: "GPT-4o", PricePerMillionUSD: 2.50},
	{Provider: models.ProviderTypeOpenAI, Model: "gpt-3.5-turbo", DisplayName: "GPT-3.5 Turbo", PricePerMillionUSD: 0.50},
	{Provider: models.ProviderTypeGemini, Model: "gemini-2.0-flash", DisplayName: "Gemini 2.0 Flash", PricePerMillionUSD: 0.10},
	{Provider: models.ProviderTypeGemini, Model: "gemini-1.5-flash", DisplayName: "Gemini 1.5 Flash", PricePerMillionUSD: 0.075},
	{Provider: models.ProviderTypeGemini, Model: "gemini-1.5-flash-8b", DisplayName: "Gemini 1.5 Flash 8B", PricePerMillionUSD: 0.0375},
	{Provider: models.ProviderTypeGemini, Model: "gemini-1.5-pro", DisplayName: "Gemini 1.5 Pro", PricePerMillionUSD: 3.50},
	{Provider: models.ProviderTypeGroq, Model: "llama3-8b-8192", DisplayName: "Llama 3 8B (Groq)", PricePerMillionUSD: 0.05},
	{Provider: models.ProviderTypeGroq, Model: "llama3-70b-8192", DisplayName: "Llama 3 70B (Groq)", PricePerMillionUSD: 0.59},
	{Provider: models.ProviderTypeDeepSeek, Model: "deepseek-chat", DisplayName: "DeepSeek Chat", PricePerMillionUSD: 0.14},
}

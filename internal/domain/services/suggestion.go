package services

import "strings"

const (
	// MaxSuggestionLength ограничение длины подсказки в маппинге поискового индекса
	MaxSuggestionLength = 50
	// SuggestionWeight вес подсказки автодополнения
	SuggestionWeight = 1
	// DefaultSuggestion подсказка для товара без тегов и без артикула
	DefaultSuggestion = "default_sku"
)

// DeriveSuggestions разбирает теги товара для автодополнения.
// Порядок и повторы сохраняются. Если тегов нет, используется артикул варианта
func DeriveSuggestions(raw, sku string) []string {
	suggestions := make([]string, 0)

	for _, token := range strings.Split(raw, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		suggestions = append(suggestions, truncateRunes(token, MaxSuggestionLength))
	}

	if len(suggestions) > 0 {
		return suggestions
	}

	// артикул передается как есть, пробелы важны только для проверки на пустоту
	if strings.TrimSpace(sku) == "" {
		return []string{DefaultSuggestion}
	}

	return []string{truncateRunes(sku, MaxSuggestionLength)}
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

package cli

import (
	"github.com/yildizm/ContractSum/internal/api"
	"github.com/yildizm/ContractSum/internal/emoji"
)

// GetEmoji is a wrapper for the shared emoji package
func GetEmoji(key string) string {
	return emoji.GetEmoji(key)
}

// GetStatusEmoji returns the symbol for an analysis status
func GetStatusEmoji(status api.Status) string {
	return emoji.ForStatus(string(status))
}

package emoji

// emojiMap holds [emoji, fallback] pairs
var emojiMap = map[string][2]string{
	"error":      {"❌", "[ERR]"},
	"warning":    {"⚠️", "[WRN]"},
	"info":       {"ℹ️", "[INF]"},
	"success":    {"✅", "[OK]"},
	"pending":    {"⏳", "[...]"},
	"failed":     {"🔴", "[FAIL]"},
	"upload":     {"📤", "[UP]"},
	"contract":   {"📄", "[DOC]"},
	"summary":    {"📝", "[SUM]"},
	"clause":     {"🎯", "[>]"},
	"user":       {"👤", "[USR]"},
	"key":        {"🔑", "[KEY]"},
	"logout":     {"🚪", "[EXIT]"},
	"watch":      {"👀", "[WATCH]"},
	"history":    {"🕘", "[HIST]"},
	"server":     {"🌐", "[SRV]"},
	"help":       {"❓", "[?]"},
	"selected":   {"☑️", "[x]"},
	"selectable": {"⬜", "[ ]"},
}

var emojiDisabled bool

// SetEmojiDisabled sets the global emoji disabled state
func SetEmojiDisabled(disabled bool) {
	emojiDisabled = disabled
}

// IsEmojiDisabled returns the current emoji disabled state
func IsEmojiDisabled() bool {
	return emojiDisabled
}

// GetEmoji returns emoji or fallback based on no-emoji setting
func GetEmoji(key string) string {
	if mapping, exists := emojiMap[key]; exists {
		if emojiDisabled {
			return mapping[1]
		}
		return mapping[0]
	}
	return "[?]"
}

// ForStatus returns the symbol for an analysis status string
func ForStatus(status string) string {
	switch status {
	case "COMPLETED":
		return GetEmoji("success")
	case "FAILED":
		return GetEmoji("failed")
	case "PENDING", "IN_PROGRESS":
		return GetEmoji("pending")
	default:
		return GetEmoji("info")
	}
}

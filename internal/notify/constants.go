package notify

// Embed colours
const (
	ColorPending  = 0xe67e22 // Orange
	ColorResolved = 0x3498db // Blue
)

// Embed text
const (
	TitlePendingConflict  = "⚠️ Conflict needs review"
	TitleResolvedConflict = "Conflict auto-resolved"
	FooterText            = "mobilesync"
)

// Log messages
const (
	LogMsgNotifierDisabled = "Discord notifier disabled, conflicts will only be logged"
	LogMsgConflictNotified = "Conflict notification sent"
)

// Error message formats
const (
	ErrMsgCreateSession = "error creating Discord session: %w"
	ErrMsgSendEmbed     = "send conflict notification for %s: %w"
)

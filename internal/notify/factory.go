package notify

import "fmt"

// BuildChannels assembles the configured delivery channels.
// Email is mandatory; telegram is attached only when configured.
func BuildChannels(email ResendConfig, telegram *TelegramConfig) ([]Channel, error) {
	emailCh, err := NewResendChannel(email)
	if err != nil {
		return nil, fmt.Errorf("notify: %w", err)
	}
	channels := []Channel{emailCh}

	if telegram != nil {
		tgCh, err := NewTelegramChannel(*telegram)
		if err != nil {
			return nil, fmt.Errorf("notify: %w", err)
		}
		channels = append(channels, tgCh)
	}
	return channels, nil
}

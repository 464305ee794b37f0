package main

import (
	"github.com/osse101/mobilesync/internal/config"
	"github.com/osse101/mobilesync/internal/event"
)

type DeadLettersCommand struct{}

func (c *DeadLettersCommand) Name() string {
	return "dead-letters"
}

func (c *DeadLettersCommand) Description() string {
	return "Summarize the event dead-letter file (EVENT_DEADLETTER_PATH or the given path)"
}

func (c *DeadLettersCommand) Run(args []string) error {
	path := getEnv("EVENT_DEADLETTER_PATH", config.DefaultDeadLetterPath)
	if len(args) > 0 {
		path = args[0]
	}

	PrintHeader("Dead letters: " + path)

	entries, skipped, err := event.ReadDeadLetters(path)
	if err != nil {
		return err
	}
	if skipped > 0 {
		PrintWarning("%d unreadable line(s) skipped", skipped)
	}
	if len(entries) == 0 {
		PrintSuccess("No dead-lettered events")
		return nil
	}

	byType := make(map[event.Type]int)
	for _, entry := range entries {
		evt, err := entry.Decode()
		if err != nil {
			PrintWarning("%s: %v", entry.Timestamp.Format("2006-01-02 15:04:05"), err)
			continue
		}
		byType[evt.Type]++
		PrintInfo("%s  %-28s tenant=%s device=%s attempts=%d error=%s",
			entry.Timestamp.Format("2006-01-02 15:04:05"), evt.Type,
			entry.TenantID, entry.DeviceID, entry.Attempts, entry.LastError)
	}

	for t, n := range byType {
		PrintWarning("%s: %d", t, n)
	}
	return nil
}

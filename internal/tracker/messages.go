package tracker

import (
	"fmt"
	"time"
)

func joinMessage(displayName string, at time.Time, serverName string, speaking bool) string {
	return fmt.Sprintf("```User %s joined the voice channel at %s on server %s. Speaking: %t```",
		displayName, at.Format(time.RFC3339), serverName, speaking)
}

func leaveMessage(displayName string, at time.Time, serverName string, speaking bool) string {
	return fmt.Sprintf("```User %s left the voice channel at %s on server %s. Speaking: %t```",
		displayName, at.Format(time.RFC3339), serverName, speaking)
}

func totalMessage(displayName string, b Breakdown) string {
	return fmt.Sprintf("```User %s spent a total of %d hours, %d minutes, %d seconds in the voice channel.```",
		displayName, b.Hours, b.Minutes, b.Seconds)
}
